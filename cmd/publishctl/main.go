package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/originform/publishctl/pkg/cmd/migrate"
	"github.com/originform/publishctl/pkg/cmd/serve"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("publishctl", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "publishctl [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newMigrateCommand(),
			newServeCommand(),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "publishctl version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("publishctl %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("PUBLISHCTL"),
		},
		ShortHelp: fmt.Sprintf("publishctl %s the database schema", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on")
	fs.StringVar(&cfg.UserAddressHeader, "user-address-header", "X-User-Address", "header an upstream auth layer populates with the caller's address")

	fs.StringVar(&cfg.UploaderBaseURL, "uploader-base-url", "", "append-only content store base url")
	fs.StringVar(&cfg.UploaderGatewayBaseURL, "uploader-gateway-base-url", "", "public gateway base url")
	fs.DurationVar(&cfg.UploaderTimeout, "uploader-timeout", 2*time.Minute, "uploader http client timeout")

	fs.StringVar(&cfg.ChainRPCURL, "chain-rpc-url", "", "evm json-rpc endpoint (empty disables on-chain steps)")
	fs.Int64Var(&cfg.ChainID, "chain-id", 0, "evm chain id")
	fs.StringVar(&cfg.ChainPrivateKey, "chain-private-key", "", "hex private key used to sign transactions")
	fs.StringVar(&cfg.ChainCollectionAddress, "chain-collection-address", "", "erc-721 collection address")
	fs.StringVar(&cfg.ChainLicenseAttachWkflow, "chain-license-attach-workflow", "", "pil attach workflow address")
	fs.StringVar(&cfg.ChainDerivativeWkflow, "chain-derivative-workflow", "", "derivative registration workflow address")
	fs.StringVar(&cfg.ChainAssetRegistry, "chain-asset-registry", "", "ip asset registry address")
	fs.StringVar(&cfg.ChainLicenseRegistry, "chain-license-registry", "", "license registry address")
	fs.StringVar(&cfg.ChainTrackRegistry, "chain-track-registry", "", "track registry address")
	fs.StringVar(&cfg.ChainContentRegistry, "chain-content-registry", "", "content registry address")
	fs.DurationVar(&cfg.ChainTxTimeout, "chain-tx-timeout", 45*time.Second, "per-transaction wait timeout")

	fs.StringVar(&cfg.LLMAPIKey, "llm-api-key", "", "openai-compatible api key")
	fs.StringVar(&cfg.LLMModel, "llm-model", "", "chat completion model")
	fs.StringVar(&cfg.LLMBaseURL, "llm-base-url", "", "openai-compatible base url (optional)")
	var llmTemperature float64
	fs.Float64Var(&llmTemperature, "llm-temperature", 0, "chat completion temperature")
	fs.IntVar(&cfg.LLMMaxTokens, "llm-max-tokens", 0, "chat completion max tokens (0 means provider default)")

	fs.StringVar(&cfg.ResolverMusicBrainzBaseURL, "resolver-musicbrainz-base-url", "", "musicbrainz-shaped base url (empty disables the resolver)")
	fs.StringVar(&cfg.ResolverAcoustIDBaseURL, "resolver-acoustid-base-url", "", "acoustid-shaped base url")
	fs.StringVar(&cfg.ResolverAcoustIDClientKey, "resolver-acoustid-client-key", "", "acoustid client key")
	fs.StringVar(&cfg.ResolverUserAgent, "resolver-user-agent", "", "user agent sent to musicbrainz")
	fs.BoolVar(&cfg.ResolverEnableTextSearch, "resolver-enable-text-search", false, "enable the text-search fallback step")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("publishctl %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("PUBLISHCTL"),
		},
		ShortHelp: fmt.Sprintf("publishctl %s the control-plane http api", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg.LLMTemperature = float32(llmTemperature)
			return serve.Serve(ctx, cfg)
		},
	}
}
