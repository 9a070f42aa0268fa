package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"

	"foodgram-backend/cmd/config"
	migration "foodgram-backend/cmd/database/migrate"
	"foodgram-backend/cmd/database/seed"
	"foodgram-backend/internal/utils"
	"foodgram-backend/pkg/logger"
)

func main() {
	seedFile := flag.String("seed", "", "path to an ingredient JSON file to import before serving")
	flag.Parse()

	_ = godotenv.Load()
	utils.LoadConfig()
	logger.Init("foodgram-backend", utils.GetConfig("APP_ENV") != "production")
	logger.SetLevel(utils.GetConfig("LOG_LEVEL"))

	db, err := config.ConnectDB()
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return
	}

	if err := migration.Migrate(db); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		return
	}

	if *seedFile != "" {
		added, err := seed.Ingredients(context.Background(), db, *seedFile)
		if err != nil {
			logger.Error().Err(err).Str("file", *seedFile).Msg("ingredient seed failed")
			return
		}
		logger.Info().Int("added", added).Msg("ingredient seed finished")
	}

	app, err := config.NewApp(db)
	if err != nil {
		logger.Error().Err(err).Msg("app setup failed")
		return
	}

	if err := app.Listen(":" + utils.GetConfig("APP_PORT")); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}
