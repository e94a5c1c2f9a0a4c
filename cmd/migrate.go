package main

import (
	"log"

	"github.com/bingoroom/bingo-backend/config"
)

func main() {
	config.LoadEnv()
	db := config.SetupDatabase() // connects + migrates
	_ = db
	log.Println("✅ Database migration completed successfully")
}
