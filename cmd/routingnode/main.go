// Command routingnode runs the peer routing subsystem as a standalone
// process: it loads configuration, loads the local identity (written by
// the keygen subcommand),
// opens the durable component store, wires the Router and its background
// Supervisor, and serves Prometheus metrics over HTTP.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"routingcore/internal/routing"
	pkgconfig "routingcore/pkg/config"
)

func main() {
	_ = godotenv.Load()
	if zapLogger, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(zapLogger)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {})); err != nil {
		// Non-fatal: falls back to the container's reported CPU count.
		fmt.Fprintf(os.Stderr, "automaxprocs: %v\n", err)
	}

	root := &cobra.Command{Use: "routingnode"}
	root.AddCommand(serveCmd())
	root.AddCommand(keygenCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the routing node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay to merge on top of default.yaml")
	return cmd
}

func keygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate an Ed25519 identity and print its PeerId",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "./node.key", "path to write the hex-encoded private key")
	return cmd
}

func runKeygen(path string) error {
	pub, sec, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(sec)), 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote identity %s to %s\n", routing.PeerIdFromPublicKey(pub), path)
	return nil
}

func loadIdentity(path string) (routing.Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret key: %w", err)
	}
	sec, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(sec) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key at %s has wrong length: got %d want %d", path, len(sec), ed25519.PrivateKeySize)
	}
	key := ed25519.PrivateKey(sec)
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type")
	}
	return routing.NewIdentity(pub, key), nil
}

func runServe(env string) error {
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging.Level)

	identity, err := loadIdentity(cfg.Node.SecretKeyPath)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.WithField("peer_id", identity.PeerId()).Info("loaded local identity")

	components, err := routing.NewComponentStore(cfg.Storage.ComponentDir)
	if err != nil {
		return fmt.Errorf("open component store: %w", err)
	}

	routerCfg := routerConfigFromFile(cfg)
	registry := prometheus.NewRegistry()
	metrics := routing.NewMetrics(registry)
	clock := routing.NewClock()

	sender := newHTTPPeerSender(cfg.Network.BootstrapPeers, log)
	router := routing.NewRouter(identity, clock, routerCfg, metrics, components, sender, log)

	bootstrap := bootstrapPeerIds(cfg.Network.BootstrapPeers)
	supervisor := routing.NewSupervisor(router, clock, routerCfg, sender, bootstrap, log)
	supervisor.Start()
	defer supervisor.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/routing", inboundRoutingHandler(router, log))
	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	log.WithField("addr", cfg.Metrics.Addr).Info("serving metrics")
	return server.ListenAndServe()
}

// inboundRoutingHandler decodes a single gossiped edge from a peer and
// submits it through the same AddEdges path a local proposal would use.
func inboundRoutingHandler(router *routing.Router, log *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		edge, err := routing.DecodeWireEdge(body)
		if err != nil {
			http.Error(w, "decode edge", http.StatusBadRequest)
			return
		}
		if _, _, err := router.AddEdges(r.Context(), []routing.Edge{edge}); err != nil {
			if errors.Is(err, routing.ErrInvalidEdge) {
				log.Warn("rejected inbound edge with invalid signature")
				http.Error(w, "invalid edge", http.StatusBadRequest)
				return
			}
			log.WithError(err).Warn("failed to apply inbound edge")
			http.Error(w, "apply edge", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func routerConfigFromFile(cfg *pkgconfig.Config) routing.RouterConfig {
	out := routing.DefaultRouterConfig()
	if cfg.Routing.UpdateIntervalMS > 0 {
		out.UpdateInterval = time.Duration(cfg.Routing.UpdateIntervalMS) * time.Millisecond
	}
	if cfg.Routing.PruneUnreachableAfterSec > 0 {
		out.PruneUnreachablePeersAfter = time.Duration(cfg.Routing.PruneUnreachableAfterSec) * time.Second
	}
	if cfg.Routing.PruneEdgesAfterSec > 0 {
		out.PruneEdgesAfter = time.Duration(cfg.Routing.PruneEdgesAfterSec) * time.Second
	}
	if cfg.Routing.SkipTombstonesSec > 0 {
		out.SkipTombstonesFor = time.Duration(cfg.Routing.SkipTombstonesSec) * time.Second
	}
	out.PruneEdgesEnabled = cfg.Routing.PruneEdgesEnabled
	out.SkipTombstonesEnabled = cfg.Routing.SkipTombstonesEnabled
	if cfg.Routing.MaxVerifyBatch > 0 {
		out.MaxVerifyBatch = cfg.Routing.MaxVerifyBatch
	}
	return out
}

func newLogger(level string) *logrus.Entry {
	l := logrus.New()
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(parsed)
	}
	return logrus.NewEntry(l)
}
