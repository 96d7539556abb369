package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/da"
	"github.com/jacktea/eigenkv/pkg/disperser"
	"github.com/jacktea/eigenkv/pkg/encryption"
	"github.com/jacktea/eigenkv/pkg/ledger"
	"github.com/jacktea/eigenkv/pkg/payload"
	"github.com/jacktea/eigenkv/pkg/server/middleware"
)

type app struct {
	ctx       context.Context
	log       *slog.Logger
	client    *da.Client
	transport blob.Transport
	ledger    *ledger.Store
	cleanup   []func()
}

func (a *app) ensureClient() error {
	if a.client != nil {
		return nil
	}
	serializer, err := payload.Lookup(viper.GetString("serializer"))
	if err != nil {
		return err
	}
	if method := encryption.Method(viper.GetString("encrypt")); method != "" && method != encryption.MethodNone {
		key, err := hex.DecodeString(viper.GetString("key"))
		if err != nil || len(key) != encryption.KeySize {
			return fmt.Errorf("encryption key must be %d bytes of hex", encryption.KeySize)
		}
		if serializer, err = payload.NewSealed(serializer, encryption.Options{Method: method, Key: key}); err != nil {
			return err
		}
	}
	transport, closer, err := buildTransport(viper.GetString("network"), transportOptions{
		Endpoint:    viper.GetString("endpoint"),
		Insecure:    viper.GetBool("insecure"),
		AccountID:   viper.GetString("account"),
		RPCTimeout:  viper.GetDuration("rpc_timeout"),
		MaxMsgBytes: viper.GetInt("max_msg_bytes"),
		LocalRoot:   viper.GetString("local_root"),
		APIKey:      viper.GetString("api_key"),
	})
	if err != nil {
		return fmt.Errorf("transport config: %w", err)
	}
	if closer != nil {
		a.cleanup = append(a.cleanup, func() { _ = closer() })
	}
	client, err := da.New(da.Config{
		Transport:       transport,
		Serializer:      serializer,
		MaxPayloadBytes: viper.GetInt("max_payload_bytes"),
		PollInterval:    viper.GetDuration("poll_interval"),
		CacheEntries:    viper.GetInt("cache_entries"),
		CacheTTL:        viper.GetDuration("cache_ttl"),
		Logger:          a.log,
	})
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	a.cleanup = append(a.cleanup, func() { _ = client.Close() })
	a.client = client
	a.transport = transport
	return nil
}

func (a *app) ensureLedger() error {
	if a.ledger != nil {
		return nil
	}
	path := viper.GetString("ledger")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ledger dir: %w", err)
	}
	store, err := ledger.Open(ledger.Config{Path: path})
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, func() { _ = store.Close() })
	a.ledger = store
	return nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

var (
	cfgFile     string
	application = &app{}
	rootCmd     = &cobra.Command{
		Use:           "eigenkv",
		Short:         "Store and fetch structured values on EigenDA",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), viper.GetString("log_level"))
			if err != nil {
				return err
			}
			application.log = logger
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	initRootFlags()
	initCommands()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	application.ctx = ctx
	err := rootCmd.ExecuteContext(ctx)
	application.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("eigenkv")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "eigenkv"))
		}
	}
	viper.SetEnvPrefix("EIGENKV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		}
	}
}

func bindConfig(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initRootFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")

	flags.String("network", "holesky", "disperser network: holesky|mainnet|local")
	flags.String("endpoint", "", "disperser address, overrides the network default")
	flags.Bool("insecure", false, "dial the disperser without TLS")
	flags.String("account", disperser.DefaultAccountID, "account id sent with dispersals")
	flags.Duration("rpc-timeout", 30*time.Second, "deadline for a single disperser call")
	flags.Int("max-msg-bytes", 8<<20, "maximum gRPC message size")
	flags.String("local-root", ".eigenkv/devnet", "blob root for the local network")
	flags.String("api-key", "", "shared key sent to, or required by, a devnet disperser")

	flags.String("serializer", "json", "payload serializer: json|cbor|json+gzip|cbor+gzip")
	flags.Int("max-payload-bytes", 0, "exclusive ceiling on encoded blobs (0 uses the 2 MiB default)")
	flags.Duration("poll-interval", da.DefaultPollInterval, "delay between status polls")
	flags.Int("cache-entries", 0, "retrieval cache size (0 default, negative disables)")
	flags.Duration("cache-ttl", 10*time.Minute, "retrieval cache entry lifetime")

	flags.String("encrypt", "none", "payload encryption: none|aes-256-gcm|xchacha20-poly1305")
	flags.String("key", "", "hex-encoded 32-byte key when encryption is enabled")

	flags.String("ledger", ".eigenkv/ledger.db", "path to the name ledger")
	flags.String("log-level", "info", "log level: debug|info|warn|error")

	for _, key := range []string{
		"network", "endpoint", "insecure", "account", "rpc-timeout", "max-msg-bytes", "local-root", "api-key",
		"serializer", "max-payload-bytes", "poll-interval", "cache-entries", "cache-ttl",
		"encrypt", "key", "ledger", "log-level",
	} {
		bindConfig(strings.ReplaceAll(key, "-", "_"), flags.Lookup(key))
	}
}

func initCommands() {
	rootCmd.AddCommand(
		newPutCmd(),
		newGetCmd(),
		newLsCmd(),
		newRmCmd(),
		newIDCmd(),
		newDevnetCmd(),
		newGCCmd(),
	)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

type transportOptions struct {
	Endpoint    string
	Insecure    bool
	AccountID   string
	RPCTimeout  time.Duration
	MaxMsgBytes int
	LocalRoot   string
	APIKey      string
}

// buildTransport returns the transport for network and, when it holds a
// connection, a function that releases it.
func buildTransport(network string, opts transportOptions) (blob.Transport, func() error, error) {
	if strings.EqualFold(network, "local") && opts.Endpoint == "" {
		if opts.LocalRoot == "" {
			return nil, nil, errors.New("local network requires --local-root")
		}
		local, err := blob.NewLocalTransport(blob.LocalConfig{Root: opts.LocalRoot})
		if err != nil {
			return nil, nil, err
		}
		return local, nil, nil
	}
	target, err := disperser.Target(network, opts.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	var dialOpts []grpc.DialOption
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(middleware.APIKey(opts.APIKey)))
	}
	client, err := disperser.Dial(disperser.Config{
		Target:      target,
		Insecure:    opts.Insecure,
		AccountID:   opts.AccountID,
		Timeout:     opts.RPCTimeout,
		MaxMsgBytes: opts.MaxMsgBytes,
		DialOptions: dialOpts,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}
