// Command initadmin provisions the initial administrator account. It is
// idempotent: an existing admin is left untouched and an existing standard
// account under the same email is promoted.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"restomap.org/internal/auth"
)

func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("RESTOMAP_PG_DSN"), "PostgreSQL DSN")
		email    = flag.String("email", os.Getenv("RESTOMAP_ADMIN_EMAIL"), "Administrator email")
		password = flag.String("password", os.Getenv("RESTOMAP_ADMIN_PASSWORD"), "Administrator password (only used when creating)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or RESTOMAP_PG_DSN")
	}
	if *email == "" {
		log.Fatal("missing email: provide via -email or RESTOMAP_ADMIN_EMAIL")
	}
	if *password == "" {
		log.Fatal("missing password: provide via -password or RESTOMAP_ADMIN_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	created, err := auth.EnsureAdmin(ctx, auth.NewPGStore(db), *email, *password)
	if err != nil {
		log.Fatalf("ensure admin: %v", err)
	}
	if created {
		log.Printf("Compte administrateur créé: %s", *email)
		log.Println("IMPORTANT: changez le mot de passe après la première connexion")
		return
	}
	log.Printf("Compte administrateur déjà en place: %s", *email)
}
