package main

import (
	"time"

	"swapmarket/internal/adapter/repository"
	"swapmarket/internal/domain/entity"
)

// seedDemoData fills the memory store so the API can be exercised locally
// with "dev:alice", "dev:bob" and "dev:admin" tokens.
func seedDemoData(store *repository.MemoryStore) {
	now := time.Now()

	store.PutUser(&entity.User{ID: "alice", FirstName: "Alice", Username: "alice", Verified: true, Role: "user"})
	store.PutUser(&entity.User{ID: "bob", FirstName: "Bob", Username: "bob", Role: "user"})
	store.PutUser(&entity.User{ID: "admin", FirstName: "Admin", Username: "admin", Role: "admin"})

	store.PutProduct(&entity.Product{ID: "camera", UserID: "alice", Title: "Film camera", Price: 100, Quantity: 1, Status: "active", DateCreated: now})
	store.PutProduct(&entity.Product{ID: "lens", UserID: "alice", Title: "50mm lens", Price: 50, Quantity: 2, Status: "active", DateCreated: now})
	store.PutProduct(&entity.Product{ID: "bike", UserID: "bob", Title: "Road bike", Price: 300, Quantity: 1, Status: "active", DateCreated: now})
	store.PutProduct(&entity.Product{ID: "helmet", UserID: "bob", Title: "Helmet", Price: 20, Quantity: 3, Status: "active", DateCreated: now})
}
