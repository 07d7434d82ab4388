package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/iOSSergey/wireguard-telegram-bot/background"
	"github.com/iOSSergey/wireguard-telegram-bot/config"
	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/handlers"
	"github.com/iOSSergey/wireguard-telegram-bot/ipmanager"
	"github.com/iOSSergey/wireguard-telegram-bot/models"
	"github.com/iOSSergey/wireguard-telegram-bot/promo"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
	"github.com/iOSSergey/wireguard-telegram-bot/wireguard"
	"github.com/iOSSergey/wireguard-telegram-bot/xray"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection successfully opened.")

	wgStore := database.NewWireguardPeerStore(db)
	vlStore := database.NewVlessPeerStore(db)
	promoStore := database.NewPromoStore(db)
	policyStore := database.NewPolicyStore(db)

	// WireGuard protocol stack.
	renderer, err := wireguard.NewConfigRenderer(cfg.Wireguard)
	if err != nil {
		log.Fatalf("WireGuard setup failed: %v", err)
	}
	allocator := ipmanager.NewAllocator(wgStore, cfg.Wireguard.SubnetPrefix, cfg.Wireguard.FirstClientIP)
	wgController := wireguard.NewWgctrlController(cfg.Wireguard.Interface)
	wgEngine := provision.NewEngine(wireguard.NewBackend(wgStore, wgController, allocator, renderer))

	engines := []*provision.Engine{wgEngine}

	// The VLESS stack comes up whenever its settings are present, so an
	// admin can switch the policy over without a restart. A policy that
	// already requires VLESS with incomplete settings is a boot failure.
	policy, err := policyStore.Get()
	if err != nil {
		log.Fatalf("Failed to read protocol policy: %v", err)
	}
	links, linkErr := xray.NewLinkBuilder(cfg.Xray)
	if linkErr == nil {
		clients := xray.NewClientList(cfg.Xray.ConfigPath, cfg.Xray.Service, xray.ExecRunner{})
		engines = append(engines, provision.NewEngine(xray.NewBackend(vlStore, clients, links)))
	} else if policy.Enabled(models.ProtocolVless) {
		log.Fatalf("Xray setup failed: %v", linkErr)
	} else {
		log.Printf("VLESS protocol unavailable: %v", linkErr)
	}

	promoService := promo.NewService(promoStore, policyStore, engines...)

	sweeper := background.NewSweeper(policyStore, engines...)
	sweeper.RestoreOnStart(time.Now())
	go sweeper.Run(context.Background())

	var cache *database.PeerCache
	if cfg.Redis.Addr != "" {
		cache, err = database.ConnectRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Redis connection successfully opened.")
		go background.NewCacheRefresher(cache, wgStore, vlStore).Run(context.Background())
	}

	auth, err := handlers.NewAuth(cfg.Server.JWTSecret, cfg.Server.AdminPassword)
	if err != nil {
		log.Fatalf("Auth setup failed: %v", err)
	}
	admin := handlers.NewAdminHandler(wgStore, vlStore, policyStore, promoStore, promoService, wgEngine, cache, cfg.Server.BotName)

	app := fiber.New()
	handlers.SetupRoutes(app, auth, admin)

	log.Printf("Starting admin API on %s...", cfg.Server.Listen)
	if err := app.Listen(cfg.Server.Listen); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
