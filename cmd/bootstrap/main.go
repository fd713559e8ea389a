// Command bootstrap runs migrations and creates the initial admin
// account from ADMIN_EMAIL and ADMIN_PASSWORD. Run it once per deploy;
// every step is idempotent.
package main

import (
	"log"

	"github.com/pthanh137/pbl3-lms/config"
	"github.com/pthanh137/pbl3-lms/database"
)

func main() {
	if err := config.LoadENV(); err != nil {
		log.Println("No .env file loaded:", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read environment: ", err)
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer store.Close()

	if err := database.AutoMigrate(store.DB()); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	seeder := database.NewSeeder(store.DB())
	if err := seeder.BootstrapAdmin(getEnv.ADMIN_EMAIL, getEnv.ADMIN_PASSWORD); err != nil {
		log.Fatal("Failed to bootstrap admin user: ", err)
	}

	log.Println("Bootstrap completed")
}
