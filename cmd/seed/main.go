// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the master user already exists.
package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"erp-suite/backend/internal/config"
	"erp-suite/backend/internal/db"
	roledomain "erp-suite/backend/internal/role/domain"
	rolerepo "erp-suite/backend/internal/role/repository"
	"erp-suite/backend/internal/security"
	userdomain "erp-suite/backend/internal/user/domain"
	userrepo "erp-suite/backend/internal/user/repository"
)

const (
	masterEmail    = "master@example.com"
	masterPassword = "master-password"
)

var seedRoles = []roledomain.Role{
	{Name: "financeiro", Description: "Finance department", GrantsDashboard: true},
	{Name: "gestao", Description: "Management", GrantsDashboard: true},
	{Name: "producao", Description: "Production floor", GrantsDashboard: false},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(pool)
	roles := rolerepo.NewPostgresRepository(pool)

	existing, err := users.GetByEmail(ctx, masterEmail)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if existing != nil {
		log.Println("seed: master user already exists, nothing to do")
		return
	}

	now := time.Now().UTC()
	for _, r := range seedRoles {
		have, err := roles.GetByName(ctx, r.Name)
		if err != nil {
			log.Fatalf("seed role %s: %v", r.Name, err)
		}
		if have != nil {
			continue
		}
		role := r
		role.ID = uuid.New().String()
		role.CreatedAt = now
		if err := roles.Create(ctx, &role); err != nil {
			log.Fatalf("seed role %s: %v", r.Name, err)
		}
		log.Printf("seed: created role %s", r.Name)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(masterPassword))
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	master := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         "Master",
		Email:        masterEmail,
		PasswordHash: hash,
		IsMaster:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, master, nil); err != nil {
		log.Fatalf("seed master user: %v", err)
	}
	log.Printf("seed: created master user %s", masterEmail)
}
