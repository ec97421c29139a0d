// Upfronts - contract and installment tracking for event organizers
package main

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aethra/upfronts/internal/api"
	"github.com/aethra/upfronts/internal/config"
	"github.com/aethra/upfronts/internal/database"
	"github.com/aethra/upfronts/internal/models"
	"github.com/aethra/upfronts/internal/salesforce"
)

var Version = "1.0.0"

func main() {
	if len(os.Args) > 1 {
		runCLI()
		return
	}
	startServer()
}

func startServer() {
	fmt.Printf("Upfronts %s - Starting...\n", Version)

	cfg := loadConfig()
	db := connectDB(cfg)
	log.Println("Database connected")

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations complete")

	crm := salesforce.NewClient(cfg.Salesforce)
	app := api.NewApp(db, cfg, crm)
	router := api.SetupRouter(app)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("Missing required env: JWT_SECRET")
	}
	return cfg
}

func connectDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

// CLI
func runCLI() {
	cmd := os.Args[1]
	switch cmd {
	case "serve":
		startServer()
	case "migrate":
		cfg := loadConfig()
		db := connectDB(cfg)
		if err := database.RunMigrations(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations complete")
	case "user":
		runUserCmd()
	default:
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: upfronts <command>
Commands:
  serve                           Start server
  migrate                         Run migrations
  user list                       List operators
  user create --email= --password= Create operator`)
}

func runUserCmd() {
	if len(os.Args) < 3 {
		printUsage()
		return
	}
	cfg := loadConfig()
	db := connectDB(cfg)
	switch os.Args[2] {
	case "list":
		var users []models.User
		db.Find(&users)
		for _, u := range users {
			fmt.Printf("%d <%s>\n", u.ID, u.Email)
		}
	case "create":
		email := getFlag("--email")
		password := getFlag("--password")
		if email == "" || password == "" {
			printUsage()
			return
		}
		user := models.User{Email: email}
		if err := user.SetPassword(password); err != nil {
			log.Fatalf("Failed: %v", err)
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("Failed: %v", err)
		}
		fmt.Printf("User created: %s\n", email)
	default:
		printUsage()
	}
}

func getFlag(name string) string {
	prefix := name + "="
	for _, arg := range os.Args {
		if len(arg) > len(prefix) && arg[:len(prefix)] == prefix {
			return arg[len(prefix):]
		}
	}
	return ""
}
