// Package serve wires every collaborator of the control-plane API
// (storage, uploader, chain adapter, llm client, resolver) into a single
// HTTP server, the same role the teacher's pkg/cmd/web/web.go plays for
// its own static-plus-api server.
package serve

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/originform/publishctl/pkg/cache"
	"github.com/originform/publishctl/pkg/chain"
	"github.com/originform/publishctl/pkg/httpapi"
	"github.com/originform/publishctl/pkg/llm"
	"github.com/originform/publishctl/pkg/publish"
	"github.com/originform/publishctl/pkg/resolver"
	"github.com/originform/publishctl/pkg/storage"
	"github.com/originform/publishctl/pkg/uploader"
)

// Config is the union of every collaborator's config plus the listen
// address, assembled once at process start (spec §9 "Global mutable
// state": nothing here is mutated after Serve dials its collaborators).
type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr              string
	UserAddressHeader string

	UploaderBaseURL        string
	UploaderGatewayBaseURL string
	UploaderTimeout        time.Duration

	ChainRPCURL              string
	ChainID                  int64
	ChainPrivateKey          string
	ChainCollectionAddress   string
	ChainLicenseAttachWkflow string
	ChainDerivativeWkflow    string
	ChainAssetRegistry       string
	ChainLicenseRegistry     string
	ChainTrackRegistry       string
	ChainContentRegistry     string
	ChainTxTimeout           time.Duration

	LLMAPIKey      string
	LLMModel       string
	LLMBaseURL     string
	LLMTemperature float32
	LLMMaxTokens   int

	ResolverMusicBrainzBaseURL string
	ResolverAcoustIDBaseURL    string
	ResolverAcoustIDClientKey  string
	ResolverUserAgent          string
	ResolverEnableTextSearch   bool
}

// Serve dials every collaborator, builds the publish/studyset/resolver
// services, and blocks serving HTTP until ctx is cancelled.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("publishctl: server started")
	defer log.Println("publishctl: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("serve: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("serve: couldn't start orm store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("serve: couldn't migrate orm store: %w", err)
	}

	up := uploader.New(uploader.Config{
		BaseURL:        cfg.UploaderBaseURL,
		GatewayBaseURL: cfg.UploaderGatewayBaseURL,
		Timeout:        cfg.UploaderTimeout,
		Debug:          cfg.Debug,
	})

	var adapter *chain.Adapter
	if cfg.ChainRPCURL != "" {
		adapter, err = chain.Dial(ctx, chain.Config{
			RPCURL:                cfg.ChainRPCURL,
			ChainID:               cfg.ChainID,
			PrivateKey:            cfg.ChainPrivateKey,
			CollectionAddress:     common.HexToAddress(cfg.ChainCollectionAddress),
			LicenseAttachWorkflow: common.HexToAddress(cfg.ChainLicenseAttachWkflow),
			DerivativeWorkflow:    common.HexToAddress(cfg.ChainDerivativeWkflow),
			AssetRegistry:         common.HexToAddress(cfg.ChainAssetRegistry),
			LicenseRegistry:       common.HexToAddress(cfg.ChainLicenseRegistry),
			TrackRegistry:         common.HexToAddress(cfg.ChainTrackRegistry),
			ContentRegistry:       common.HexToAddress(cfg.ChainContentRegistry),
			TxTimeout:             cfg.ChainTxTimeout,
		})
		if err != nil {
			return fmt.Errorf("serve: couldn't dial chain: %w", err)
		}
	}

	publishSvc := publish.NewService(store, up, adapter)

	llmClient := llm.New(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Debug:       cfg.Debug,
	})

	var trackResolver *resolver.Resolver
	if cfg.ResolverMusicBrainzBaseURL != "" {
		resolverClient := resolver.New(resolver.Config{
			MusicBrainzBaseURL: cfg.ResolverMusicBrainzBaseURL,
			AcoustIDBaseURL:    cfg.ResolverAcoustIDBaseURL,
			AcoustIDClientKey:  cfg.ResolverAcoustIDClientKey,
			UserAgent:          cfg.ResolverUserAgent,
			EnableTextSearch:   cfg.ResolverEnableTextSearch,
		})
		trackResolver = resolver.NewResolver(resolverClient, cache.NewMemory())
	}

	mux := httpapi.NewRouter(httpapi.Config{
		Debug:             cfg.Debug,
		UserAddressHeader: cfg.UserAddressHeader,
	}, publishSvc, llmClient, trackResolver)

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	split := strings.Split(addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("serve: invalid address: %s", addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("serve: invalid port: %s", split[1])
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
