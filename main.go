package main

import (
	"github.com/fernwiki/fern/config"
	"github.com/fernwiki/fern/models"
	"github.com/fernwiki/fern/routes"
	"github.com/fernwiki/fern/utils"
	"github.com/fernwiki/fern/wiki"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.PageView{}, &models.ViewStamp{}, &models.UploadedFile{})

	store, err := wiki.NewStore(cfg.ContentDir)
	if err != nil {
		utils.Sugar.Fatalf("failed to open content directory: %v", err)
	}

	r := routes.SetupRouter(db, store)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
