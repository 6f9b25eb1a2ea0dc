// Command seed provisions asset types, system treasuries and demo users with
// wallets, plus a starter bonus so the demo wallets are spendable.
package main

import (
	"context"
	"log"

	"tally/internal/config"
	"tally/internal/models"
	"tally/internal/repositories"
	"tally/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

type seedAsset struct {
	name        string
	description string
	treasury    string
}

var assets = []seedAsset{
	{name: "Gold Coins", description: "Primary currency for in-game purchases", treasury: "Gold Treasury"},
	{name: "Silver Coins", description: "Secondary currency for special items", treasury: "Silver Treasury"},
}

var demoUsers = []models.User{
	{Email: "alice@example.com", Name: "Alice Johnson"},
	{Email: "bob@example.com", Name: "Bob Smith"},
}

func main() {
	config.LoadEnv()
	cfg := config.Load()

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			sqlDB.Close()
		}
		if repositories.CacheService != nil {
			repositories.CacheService.Close()
		}
	}()

	log.Println("🌱 Starting database seed...")

	assetTypes := make(map[string]*models.AssetType)
	for _, asset := range assets {
		assetType := &models.AssetType{Name: asset.name, Description: asset.description}
		err := repositories.DB.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(assetType).Error
		if err != nil {
			log.Fatal("Failed to create asset type:", err)
		}
		if err := repositories.DB.Where("name = ?", asset.name).First(assetType).Error; err != nil {
			log.Fatal("Failed to load asset type:", err)
		}
		assetTypes[asset.name] = assetType

		systemWallet := &models.SystemWallet{AssetTypeID: assetType.ID, Name: asset.treasury}
		err = repositories.DB.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "asset_type_id"}}, DoNothing: true}).
			Create(systemWallet).Error
		if err != nil {
			log.Fatal("Failed to create system wallet:", err)
		}
		log.Printf("✅ Asset type %q with %q ready", asset.name, asset.treasury)
	}

	ledgerRepo := repositories.NewLedgerRepository(repositories.DB)
	walletService := wallet.NewService(ledgerRepo, repositories.CacheService, wallet.Config{
		Limits:     cfg.TransactionLimits,
		Validation: cfg.Validation,
		Retry:      cfg.Retry,
	}, nil, nil)

	starterBonus := decimal.NewFromInt(int64(config.GetIntEnv("SEED_STARTER_BONUS", 1000)))

	for i := range demoUsers {
		user := &demoUsers[i]
		err := repositories.DB.
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
			Create(user).Error
		if err != nil {
			log.Fatal("Failed to create user:", err)
		}
		if err := repositories.DB.Where("email = ?", user.Email).First(user).Error; err != nil {
			log.Fatal("Failed to load user:", err)
		}

		for _, assetType := range assetTypes {
			if _, err := walletService.EnsureWallet(context.Background(), user.ID, assetType.ID); err != nil {
				log.Fatal("Failed to create wallet:", err)
			}

			if starterBonus.IsPositive() {
				_, err := walletService.Bonus(context.Background(), wallet.OperationParams{
					UserID:      user.ID,
					AssetTypeID: assetType.ID,
					Amount:      starterBonus,
					ReferenceID: "seed-bonus-" + uuid.NewString(),
					Metadata:    map[string]interface{}{"source": "seed"},
				})
				if err != nil {
					log.Fatal("Failed to grant starter bonus:", err)
				}
			}
		}
		log.Printf("✅ User %s seeded with %d wallets", user.Email, len(assetTypes))
	}

	log.Println("🎉 Database seeding completed successfully!")
}
