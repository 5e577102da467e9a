package entity

import (
	"time"
)

type ProductTranslation struct {
	LanguagesCode string `json:"languages_code" firestore:"languagesCode"`
	Name          string `json:"name" firestore:"name"`
	Description   string `json:"description" firestore:"description"`
}

type Product struct {
	ID                string               `json:"id" firestore:"id"`
	UserID            string               `json:"user_id" firestore:"userId"`
	Title             string               `json:"title" firestore:"title"`
	Price             float64              `json:"price" firestore:"price"`
	Quantity          int                  `json:"quantity" firestore:"quantity"`
	AllowedCategories []string             `json:"allowed_categories" firestore:"allowedCategories"`
	Translations      []ProductTranslation `json:"translations" firestore:"translations"`
	Images            []string             `json:"images" firestore:"images"`
	Status            string               `json:"status" firestore:"status"`
	DateCreated       time.Time            `json:"date_created" firestore:"dateCreated"`
}

// DisplayName prefers the title, then the first translation name.
func (p *Product) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	for _, t := range p.Translations {
		if t.Name != "" {
			return t.Name
		}
	}
	return ""
}
