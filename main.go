// File: main.go
package main

import (
	"context"
	"errors"
	"fmt"
	mrand "math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"captchaAuth/internal/audit"
	"captchaAuth/internal/challenge"
	"captchaAuth/internal/config"
	"captchaAuth/internal/render"
	"captchaAuth/internal/store"
)

var (
	configPath string
	sampleKind string
	sampleOut  string
	sampleSeed int64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Self-hosted captcha server",
	Long: `Issues text, image-grid, slider, drag-and-drop and checkbox captcha
challenges and verifies the answers. Every challenge can be verified once;
a solved one yields a pass token that can be redeemed once.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Render one challenge and write its images as PNG files",
	Example: `  captcha sample --kind slider --out ./out
  captcha sample --kind image --seed 7`,
	RunE: runSample,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale and surplus images from the image cache",
	Long: `Deletes cached images older than images.max_age_days, then keeps at most
images.max_per_category of the newest images in every category.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
	sampleCmd.Flags().StringVarP(&sampleKind, "kind", "k", string(challenge.KindText), "challenge kind: text, image, slider, drag or checkbox")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", ".", "output directory")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", 0, "random seed (0 picks one from the clock)")
	rootCmd.AddCommand(serveCmd, sampleCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// setup loads the config and the logger shared by every command.
func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err = newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, table *store.Table[challenge.Solution], opts ...challenge.Option) *challenge.Engine {
	images := render.DirSource{Root: cfg.Images.CacheDir}
	opts = append([]challenge.Option{
		challenge.WithSource(render.Chain{images, render.Pictograms{}}),
		challenge.WithBackgrounds(images),
		challenge.WithLogger(logger),
	}, opts...)
	return challenge.New(cfg.Challenge(), table, opts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := store.New[challenge.Solution]()
	table.Start(ctx, cfg.SweepInterval(), func(n int) {
		if n > 0 {
			logger.Debug("swept expired challenges", zap.Int("removed", n))
		}
	})
	defer table.Close()

	passes := store.New[challenge.Pass]()
	passes.Start(ctx, cfg.SweepInterval(), func(n int) {
		if n > 0 {
			logger.Debug("swept expired pass tokens", zap.Int("removed", n))
		}
	})
	defer passes.Close()

	opts := []challenge.Option{challenge.WithPassTable(passes)}
	var auditDB AuditCounter
	if path := cfg.Audit.SQLitePath; path != "" {
		db, err := audit.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, challenge.WithRecorder(db))
		auditDB = db
		logger.Info("audit log enabled", zap.String("path", path))
	}

	key, generated, err := cfg.SessionKey()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("no session secret configured, using a random one; sessions will not survive a restart",
			zap.String("env", config.SessionSecretEnv))
	}
	cookies := sessions.NewCookieStore(key)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Captcha.ChallengeTTLSeconds,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	srv := &server{
		engine:   newEngine(cfg, table, opts...),
		table:    table,
		sessions: cookies,
		images:   render.DirSource{Root: cfg.Images.CacheDir},
		audit:    auditDB,
		log:      logger,
	}
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.routes(cfg.Server.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, err := challenge.ParseKind(sampleKind)
	if err != nil {
		return err
	}
	seed := sampleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	table := store.New[challenge.Solution]()
	e := newEngine(cfg, table, challenge.WithRand(mrand.New(mrand.NewSource(seed))))
	c, err := e.Generate(cmd.Context(), kind, challenge.Overrides{})
	if err != nil {
		return err
	}

	files, err := writeSample(sampleOut, c)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	logger.Info("sample written",
		zap.String("kind", string(kind)),
		zap.Int64("seed", seed),
		zap.Int("files", len(files)))
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	images := render.DirSource{Root: cfg.Images.CacheDir}
	removed, err := images.Cleanup(cfg.ImageMaxAge(), cfg.Images.MaxPerCategory, time.Now())
	if err != nil {
		return fmt.Errorf("clean %s: %w", images.Root, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d images\n", removed)
	logger.Info("image cache cleaned",
		zap.String("dir", images.Root),
		zap.Duration("max_age", cfg.ImageMaxAge()),
		zap.Int("max_per_category", cfg.Images.MaxPerCategory),
		zap.Int("removed", removed))
	return nil
}

// writeSample writes every image of c into dir and returns the paths.
func writeSample(dir string, c *challenge.Challenge) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	assets := map[string]challenge.Asset{}
	switch p := c.Payload.(type) {
	case challenge.TextPayload:
		assets["text.png"] = p.Image
	case challenge.GridPayload:
		for _, img := range p.Images {
			assets[fmt.Sprintf("grid_%d.png", img.Index)] = img.Image
		}
	case challenge.SliderPayload:
		assets["background.png"] = p.Background
		assets["piece.png"] = p.Piece
	case challenge.DragPayload:
		assets["background.png"] = p.Background
		for _, pc := range p.Pieces {
			assets[fmt.Sprintf("piece_%d.png", pc.ID)] = pc.Image
		}
	}

	files := make([]string, 0, len(assets))
	for name, b := range assets {
		path := filepath.Join(dir, string(c.Kind)+"_"+name)
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
