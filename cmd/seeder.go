package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/order"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/user"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"payments", "order_summaries", "purchase_orders", "users", "clients"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		client := tenant.Client{
			ClientName:       "Acme Traders",
			Website:          "https://acme.example.com",
			SupportEmail:     "support@acme.example.com",
			GatewayAPIKey:    "rzp_test_seed_key",
			GatewayAPISecret: "rzp_test_seed_secret",
			IsActive:         true,
			CreatedUser:      "seeder",
			ModifiedUser:     "seeder",
		}
		if err := db.Where("client_name = ?", client.ClientName).FirstOrCreate(&client).Error; err != nil {
			log.Fatalf("failed to seed client: %v", err)
		}
		fmt.Println("Seeded client:", client.ClientName)

		// A second tenant without gateway credentials, for exercising the
		// not-configured path locally
		bareClient := tenant.Client{
			ClientName:   "Bare Supplies",
			SupportEmail: "help@bare.example.com",
			IsActive:     true,
			CreatedUser:  "seeder",
			ModifiedUser: "seeder",
		}
		if err := db.Where("client_name = ?", bareClient.ClientName).FirstOrCreate(&bareClient).Error; err != nil {
			log.Fatalf("failed to seed client: %v", err)
		}
		fmt.Println("Seeded client:", bareClient.ClientName)

		operator := user.User{
			ClientID:     client.ClientID,
			UserName:     "ops",
			Email:        "ops@acme.example.com",
			PasswordHash: string(hash),
			IsActive:     true,
		}
		if err := db.Where("user_name = ?", operator.UserName).FirstOrCreate(&operator).Error; err != nil {
			log.Fatalf("failed to seed user: %v", err)
		}
		fmt.Println("Seeded user:", operator.UserName)

		po := order.PurchaseOrder{
			ClientID:            client.ClientID,
			VendorNumber:        "VND-1001",
			PurchaseOrderStatus: order.StatusPendingApproval,
			CreatedUser:         "seeder",
			ModifiedUser:        "seeder",
		}
		if err := db.Where("vendor_number = ?", po.VendorNumber).FirstOrCreate(&po).Error; err != nil {
			log.Fatalf("failed to seed purchase order: %v", err)
		}

		summary := order.OrderSummary{
			EntityType:    "PURCHASE_ORDER",
			EntityID:      po.PurchaseOrderID,
			GrandTotal:    decimal.NewFromInt(1000),
			PendingAmount: decimal.NewFromInt(1000),
			CreatedUser:   "seeder",
			ModifiedUser:  "seeder",
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := db.Where("entity_type = ? AND entity_id = ?", summary.EntityType, summary.EntityID).
			FirstOrCreate(&summary).Error; err != nil {
			log.Fatalf("failed to seed order summary: %v", err)
		}
		fmt.Printf("Seeded purchase order %d with grand total %s\n", po.PurchaseOrderID, summary.GrandTotal.String())
	},
}
