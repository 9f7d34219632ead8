package main

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"tenderboq/collections"
	"tenderboq/config"
	"tenderboq/handlers"
)

func main() {
	app := pocketbase.New()

	cfg := config.Default()
	if err := cfg.LoadEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg.BindFlags(app.RootCmd)

	// Create collections, backfill and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		collections.Setup(app)
		if err := collections.MigrateNormalizedAmounts(app); err != nil {
			log.Printf("Warning: pricing migration failed: %v", err)
		}
		if cfg.SeedDemo {
			if err := collections.SeedDemo(app); err != nil {
				log.Printf("Warning: seed data failed: %v", err)
			}
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		classifier, err := cfg.Classifier()
		if err != nil {
			return err
		}

		// ── Tenders ──────────────────────────────────────────────
		se.Router.POST("/tenders", handlers.HandleTenderCreate(app))

		tender := se.Router.Group("/tenders/{id}")
		tender.BindFunc(handlers.TenderMiddleware(app))
		tender.GET("", handlers.HandleTenderView(app))

		// ── BOQ import ───────────────────────────────────────────
		tender.POST("/boq/preview", handlers.HandleBOQPreview(app, classifier))
		tender.POST("/boq/import", handlers.HandleBOQImport(app, classifier))

		// ── Roll-ups and pricing ─────────────────────────────────
		tender.GET("/priceable", handlers.HandleTenderPriceable(app))
		tender.GET("/bids/{bidId}/totals", handlers.HandleBidTotals(app))
		tender.POST("/bids/{bidId}/pricing", handlers.HandleBidPricingSave(app))

		// ── Comparable sheet ─────────────────────────────────────
		tender.GET("/comparable", handlers.HandleComparableSheet(app, cfg.MinBidders))
		tender.GET("/comparable/view", handlers.HandleComparableSheetView(app, cfg.MinBidders))
		tender.GET("/comparable/excel", handlers.HandleComparableSheetExcel(app, cfg.MinBidders))
		tender.GET("/comparable/pdf", handlers.HandleComparableSheetPDF(app, cfg.MinBidders))

		if cfg.SeedDemo {
			se.Router.GET("/", func(e *core.RequestEvent) error {
				demo, err := app.FindFirstRecordByData("tenders", "reference_number", collections.DemoReference)
				if err != nil {
					return e.String(http.StatusNotFound, "Demo tender not found")
				}
				return e.Redirect(http.StatusFound, "/tenders/"+demo.Id+"/comparable/view")
			})
		}

		log.Printf("tender routes ready (min bidders %d, lookahead %d, %d patterns)",
			cfg.MinBidders, classifier.LookaheadWindow, len(classifier.Patterns))
		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
