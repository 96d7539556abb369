package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"google.golang.org/grpc"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/da"
	"github.com/jacktea/eigenkv/pkg/disperser"
	"github.com/jacktea/eigenkv/pkg/gc"
	"github.com/jacktea/eigenkv/pkg/ledger"
	"github.com/jacktea/eigenkv/pkg/payload"
	"github.com/jacktea/eigenkv/pkg/server/middleware"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

func newPutCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "put [file]",
		Short: "Store a JSON value read from file or stdin and print its identifier",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.ensureClient(); err != nil {
				return err
			}
			var store *ledger.Store
			if name != "" {
				if err := application.ensureLedger(); err != nil {
					return err
				}
				store = application.ledger
			}
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return doPut(cmd.Context(), application.client, store, in, cmd.OutOrStdout(), putOptions{
				Name:    name,
				Timeout: viper.GetDuration("put.timeout"),
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "record the identifier under this name in the ledger")
	cmd.Flags().Duration("timeout", 0, "give up waiting for confirmation after this long (0 waits)")
	bindConfig("put.timeout", cmd.Flags().Lookup("timeout"))
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|name>",
		Short: "Fetch a stored value and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.ensureClient(); err != nil {
				return err
			}
			var store *ledger.Store
			if _, err := blob.ParseID(args[0]); err != nil {
				if err := application.ensureLedger(); err != nil {
					return err
				}
				store = application.ledger
			}
			return doGet(cmd.Context(), application.client, store, args[0], cmd.OutOrStdout())
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List named identifiers in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.ensureLedger(); err != nil {
				return err
			}
			return doList(cmd.Context(), application.ledger, cmd.OutOrStdout())
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Forget a named identifier; the blob itself stays on the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.ensureLedger(); err != nil {
				return err
			}
			return application.ledger.Delete(cmd.Context(), args[0])
		},
	}
}

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <id>",
		Short: "Show the components of a blob identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doID(args[0], cmd.OutOrStdout())
		},
	}
}

func newDevnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devnet",
		Short: "Serve a local disperser backed by the filesystem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevnet(cmd.Context(), devnetOptions{
				Addr:         viper.GetString("devnet.addr"),
				Root:         viper.GetString("local_root"),
				ConfirmAfter: viper.GetInt("devnet.confirm_after"),
				BatchSize:    viper.GetInt("devnet.batch_size"),
				APIKey:       viper.GetString("api_key"),
				RateLimit:    viper.GetInt("devnet.rate_limit"),
				RateWindow:   viper.GetDuration("devnet.rate_window"),
			})
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:32001", "listen address")
	cmd.Flags().Int("confirm-after", 2, "status polls before a blob is confirmed")
	cmd.Flags().Int("batch-size", 16, "blobs per batch")
	cmd.Flags().Int("rate-limit", 0, "calls allowed per rate window (0 disables)")
	cmd.Flags().Duration("rate-window", time.Second, "rate limit window")
	bindConfig("devnet.addr", cmd.Flags().Lookup("addr"))
	bindConfig("devnet.confirm_after", cmd.Flags().Lookup("confirm-after"))
	bindConfig("devnet.batch_size", cmd.Flags().Lookup("batch-size"))
	bindConfig("devnet.rate_limit", cmd.Flags().Lookup("rate-limit"))
	bindConfig("devnet.rate_window", cmd.Flags().Lookup("rate-window"))
	return cmd
}

func newGCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Drop ledger records whose blobs have expired or vanished",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.ensureClient(); err != nil {
				return err
			}
			if err := application.ensureLedger(); err != nil {
				return err
			}
			sweeper := gc.NewSweeper(gc.Options{
				Ledger:    application.ledger,
				Transport: application.transport,
				MaxAge:    viper.GetDuration("gc.max_age"),
				DryRun:    viper.GetBool("gc.dry_run"),
				Logger:    application.log,
			})
			return doGC(cmd.Context(), sweeper, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Duration("max-age", 0, "drop records older than this without probing (0 probes every record)")
	cmd.Flags().Bool("dry-run", false, "report what would be removed")
	bindConfig("gc.max_age", cmd.Flags().Lookup("max-age"))
	bindConfig("gc.dry_run", cmd.Flags().Lookup("dry-run"))
	return cmd
}

type putOptions struct {
	Name    string
	Timeout time.Duration
}

// doPut accepts JSON with comments and trailing commas, stores it through the
// client's serializer and prints the identifier.
func doPut(ctx context.Context, client *da.Client, store *ledger.Store, r io.Reader, w io.Writer, opt putOptions) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var value any
	if err := json.Unmarshal(jsonc.ToJSON(src), &value); err != nil {
		return xerrors.Wrap(xerrors.KindInvalid, "put", "", err)
	}
	serializer := client.Serializer()
	raw, err := serializer.Marshal(value)
	if err != nil {
		return xerrors.Wrap(xerrors.KindInvalid, "put", "", err)
	}
	id, err := client.PutBytes(ctx, raw, &da.PutOptions{MaxTimeout: opt.Timeout})
	if err != nil {
		return err
	}
	if store != nil && opt.Name != "" {
		digest, err := ledger.Digest(raw)
		if err != nil {
			return err
		}
		err = store.Record(ctx, ledger.Record{
			Name:       opt.Name,
			ID:         id,
			CID:        digest,
			Serializer: serializer.Name(),
			Size:       len(raw),
		})
		if err != nil {
			return fmt.Errorf("blob %s stored but not recorded: %w", id, err)
		}
	}
	_, err = fmt.Fprintln(w, id)
	return err
}

// doGet resolves ref as an identifier first and as a ledger name second.
func doGet(ctx context.Context, client *da.Client, store *ledger.Store, ref string, w io.Writer) error {
	serializer := client.Serializer()
	var rec *ledger.Record
	id, err := blob.ParseID(ref)
	if err != nil {
		if store == nil {
			return err
		}
		found, lerr := store.Lookup(ctx, ref)
		if lerr != nil {
			return errors.Join(err, lerr)
		}
		rec = &found
		id = found.ID
		if found.Serializer != "" && found.Serializer != serializer.Name() {
			if serializer, err = payload.Lookup(found.Serializer); err != nil {
				return fmt.Errorf("record %q: %w", ref, err)
			}
		}
	}
	raw, err := client.GetBytes(ctx, id)
	if err != nil {
		return err
	}
	if rec != nil {
		if err := rec.Verify(raw); err != nil {
			return err
		}
	}
	var value any
	if err := serializer.Unmarshal(raw, &value); err != nil {
		return xerrors.Wrap(xerrors.KindDeserialization, "get", id.String(), err)
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func doList(ctx context.Context, store *ledger.Store, w io.Writer) error {
	records, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", rec.Name, rec.ID, rec.Serializer, rec.Size, rec.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func doGC(ctx context.Context, sweeper *gc.Sweeper, w io.Writer) error {
	removed, err := sweeper.Sweep(ctx)
	for _, name := range removed {
		fmt.Fprintln(w, name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "gc removed %d records\n", len(removed))
	return nil
}

func doID(ref string, w io.Writer) error {
	id, err := blob.ParseID(ref)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "index:     %d\nbatch tag: %s\nbase64:    %s\n",
		id.Index, hex.EncodeToString(id.BatchTag), base64.StdEncoding.EncodeToString(id.BatchTag))
	return err
}

type devnetOptions struct {
	Addr         string
	Root         string
	ConfirmAfter int
	BatchSize    int
	APIKey       string
	RateLimit    int
	RateWindow   time.Duration
}

func runDevnet(ctx context.Context, opt devnetOptions) error {
	local, err := blob.NewLocalTransport(blob.LocalConfig{
		Root:         opt.Root,
		ConfirmAfter: opt.ConfirmAfter,
		BatchSize:    opt.BatchSize,
	})
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", opt.Addr)
	if err != nil {
		return err
	}
	interceptors := middleware.Chain(
		middleware.Logging(application.log),
		middleware.APIKeyAuth(opt.APIKey),
		middleware.RateLimit(middleware.RateLimitOptions{Requests: opt.RateLimit, Window: opt.RateWindow}),
	)
	srv := grpc.NewServer(append(disperser.ServerOptions(), interceptors)...)
	(&disperser.Server{Transport: local, Logger: application.log}).Register(srv)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	fmt.Fprintf(os.Stderr, "Serving devnet disperser on %s (use --endpoint %s --insecure)\n", lis.Addr(), lis.Addr())
	return srv.Serve(lis)
}
