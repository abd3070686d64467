package main

import (
	"log"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"go.uber.org/zap"

	"github.com/Vovarama1992/pixelforge/internal/config"
	"github.com/Vovarama1992/pixelforge/internal/convert"
	"github.com/Vovarama1992/pixelforge/internal/delivery"
	"github.com/Vovarama1992/pixelforge/internal/pdf"
)

const serviceName = "pixelforge"

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var baseLogger *zap.Logger
	if cfg.Env == config.EnvProduction {
		baseLogger, err = zap.NewProduction()
	} else {
		baseLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	assembler, err := pdf.NewPdfcpuAssembler(cfg.PageForm)
	if err != nil {
		log.Fatalf("failed to init pdf assembler: %v", err)
	}
	transformer := convert.NewImagingTransformer(convert.DefaultPresets, cfg.MaxImagePixels)

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	pdfService := pdf.NewPDFService(assembler)
	convertService := convert.NewService(transformer, pdfService, zl)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	convertHandler := delivery.NewConvertHandler(convertService, zl, cfg.MaxUploadBytes)
	healthHandler := delivery.NewHealthHandler(serviceName)

	r := delivery.NewRouter(cfg, convertHandler, healthHandler)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := cfg.Addr()
	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: serviceName,
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
