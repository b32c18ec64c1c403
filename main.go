package main

import (
	"log"

	"github.com/techagentng/memorybox/config"
	"github.com/techagentng/memorybox/db"
	"github.com/techagentng/memorybox/server"
	"github.com/techagentng/memorybox/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var (
		store  db.ConversationStore
		repo   db.ConversationRepository
		remote services.RemoteDataClient
		gormDB db.GormDB
	)
	if conf.Mode == config.ModeRemote {
		remote = services.NewRemoteClient(conf)
		store = remote
	} else {
		g := db.GetDB(conf)
		gormDB = *g
		repo = db.NewConversationRepo(g)
		store = repo
	}

	ocrService := services.NewOCRService(conf)
	conversationService := services.NewConversationService(store, conf)
	uploadService := services.NewUploadService(repo, remote, ocrService, conf)

	s := &server.Server{
		Config:              conf,
		DB:                  gormDB,
		ConversationService: conversationService,
		UploadService:       uploadService,
		OCRService:          ocrService,
	}

	s.Start()
}
