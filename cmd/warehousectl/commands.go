package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"warehouse/internal/database"
	"warehouse/internal/domain"
	"warehouse/internal/maintenance"
	"warehouse/internal/monitor"
	"warehouse/internal/repository"
	"warehouse/internal/seed"
	"warehouse/internal/selfcheck"
	"warehouse/internal/service"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// flagError marks bad command-line input
type flagError struct{ err error }

func (e flagError) Error() string { return e.err.Error() }
func (e flagError) Unwrap() error { return e.err }

func isFlagError(err error) bool {
	var fe flagError
	return errors.As(err, &fe)
}

func (a *app) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitError(0)
		}
		return flagError{err}
	}
	return nil
}

// openDatabase connects and fails fast when the database is unreachable
func (a *app) openDatabase(ctx context.Context) (database.Service, error) {
	db, err := database.New(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if health := db.Health(ctx); health["status"] != "up" {
		db.Close()
		return nil, fmt.Errorf("database unavailable: %s", health["error"])
	}
	return db, nil
}

func runMigrate(a *app, args []string) error {
	fs := a.flagSet("migrate")
	if err := parse(fs, args); err != nil {
		return err
	}

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}
	if action != "up" && action != "status" {
		return flagError{fmt.Errorf("unknown migrate action %q", action)}
	}

	db, err := a.openDatabase(context.Background())
	if err != nil {
		return err
	}
	defer db.Close()

	if action == "status" {
		return database.GetMigrationStatus(db.DB())
	}
	return database.RunMigrations(db.DB(), a.logger)
}

func runSeed(a *app, args []string) error {
	opts := seed.DefaultOptions()
	fs := a.flagSet("seed")
	fs.IntVar(&opts.Products, "products", opts.Products, "number of products")
	fs.IntVar(&opts.Customers, "customers", opts.Customers, "number of customers")
	fs.IntVar(&opts.Orders, "orders", opts.Orders, "number of orders")
	fs.Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")
	if err := parse(fs, args); err != nil {
		return err
	}
	if opts.Products < 0 || opts.Customers < 0 || opts.Orders < 0 {
		return flagError{errors.New("counts must not be negative")}
	}

	ctx := context.Background()
	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	sqlDB := db.DB()
	productRepo := repository.NewProductRepository(sqlDB)
	customerRepo := repository.NewCustomerRepository(sqlDB)
	seeder := seed.NewSeeder(
		service.NewCatalogService(productRepo, repository.NewCategoryRepository(sqlDB), a.logger),
		service.NewCustomerService(customerRepo),
		service.NewOrderService(repository.NewOrderRepository(sqlDB), customerRepo, a.logger),
		service.NewInventoryService(repository.NewInventoryRepository(sqlDB)),
		a.logger,
	)

	result, err := seeder.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "seeded %d products, %d inventory levels, %d customers, %d orders\n",
		result.Products, result.InventoryLevels, result.Customers, result.Orders)
	return nil
}

var errHealthChecksDone = errors.New("health checks done")

func runHealth(a *app, args []string) error {
	fs := a.flagSet("health")
	format := fs.String("format", "text", "output format: text or json")
	threshold := fs.Int("threshold", a.cfg.Inventory.LowStockThreshold, "low stock threshold")
	interval := fs.Duration("interval", 0, "repeat the check at this interval until interrupted (0 runs once)")
	count := fs.Int("count", 0, "with --interval, stop after this many checks (0 means no limit)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *format != "text" && *format != "json" {
		return flagError{fmt.Errorf("unknown format %q", *format)}
	}
	if *interval < 0 {
		return flagError{errors.New("--interval must not be negative")}
	}
	if *count < 0 {
		return flagError{errors.New("--count must not be negative")}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(a.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	checker := monitor.NewChecker(
		db,
		repository.NewStatsRepository(db.DB()),
		repository.NewProductRepository(db.DB()),
		monitor.NewHostSampler("/", time.Second),
		*threshold,
		a.logger,
	)

	var last *monitor.Report
	emit := func(report *monitor.Report) error {
		last = report
		if *format == "json" {
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return report.WriteText(a.stdout)
	}

	if *interval == 0 {
		if err := emit(checker.Check(ctx)); err != nil {
			return err
		}
	} else {
		checks := 0
		err := checker.Watch(ctx, *interval, func(report *monitor.Report) error {
			if err := emit(report); err != nil {
				return err
			}
			checks++
			if *count > 0 && checks >= *count {
				return errHealthChecksDone
			}
			return nil
		})
		if err != nil && !errors.Is(err, errHealthChecksDone) {
			return err
		}
	}

	if last != nil && !last.Healthy {
		return exitError(1)
	}
	return nil
}

func runCleanupLogs(a *app, args []string) error {
	dir := "logs"
	if a.cfg.Log.File != "" {
		dir = filepath.Dir(a.cfg.Log.File)
	}

	opts := maintenance.LogCleanupOptions{}
	fs := a.flagSet("cleanup-logs")
	fs.IntVar(&opts.Days, "days", maintenance.DefaultRetentionDays, "keep log files newer than this many days")
	fs.BoolVar(&opts.Compress, "compress", false, "gzip old logs instead of removing them")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report what would change without touching files")
	fs.StringVar(&opts.Dir, "dir", dir, "log directory")
	if err := parse(fs, args); err != nil {
		return err
	}
	if opts.Days <= 0 {
		return flagError{errors.New("--days must be positive")}
	}

	result, err := maintenance.CleanupLogs(opts, a.logger)
	if err != nil {
		return err
	}

	verb := "removed"
	files := result.Removed
	if opts.Compress {
		verb, files = "compressed", result.Compressed
	}
	if opts.DryRun {
		verb = "would be " + verb
	}

	fmt.Fprintf(a.stdout, "cleaning logs in %s older than %s\n", opts.Dir, result.Cutoff.Format("2006-01-02"))
	for _, name := range files {
		fmt.Fprintf(a.stdout, "  %s: %s\n", verb, name)
	}
	if result.Processed() == 0 {
		fmt.Fprintln(a.stdout, "no files to process")
	} else {
		fmt.Fprintf(a.stdout, "%d files %s\n", result.Processed(), verb)
	}
	return nil
}

func runSelfcheck(a *app, args []string) error {
	opts := selfcheck.Options{}
	fs := a.flagSet("selfcheck")
	fs.StringVar(&opts.BaseURL, "base-url", "", "API base URL, for example http://localhost:8080")
	fs.BoolVar(&opts.Full, "full", false, "also run the extended probes")
	fs.BoolVar(&opts.SkipRateLimit, "skip-rate-limit", false, "skip the rate limiting probe")
	fs.StringVar(&opts.Email, "email", "", "admin email for the input validation probe")
	fs.StringVar(&opts.Password, "password", "", "admin password for the input validation probe")
	fs.IntVar(&opts.RateLimitProbes, "rate-limit-probes", selfcheck.DefaultRateLimitProbes, "requests sent by the rate limiting probe")
	if err := parse(fs, args); err != nil {
		return err
	}
	if opts.BaseURL == "" {
		return flagError{errors.New("--base-url is required")}
	}

	report := selfcheck.Run(context.Background(), opts, a.logger)
	if err := report.WriteText(a.stdout); err != nil {
		return err
	}
	if !report.OK() {
		return exitError(1)
	}
	return nil
}

func runCreateAdmin(a *app, args []string) error {
	input := service.CreateUserInput{Role: domain.RoleAdmin}
	fs := a.flagSet("create-admin")
	fs.StringVar(&input.Email, "email", "", "admin email")
	fs.StringVar(&input.Password, "password", "", "admin password, at least 8 characters")
	fs.StringVar(&input.FirstName, "first-name", "Admin", "first name")
	fs.StringVar(&input.LastName, "last-name", "", "last name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if input.Email == "" || input.Password == "" {
		return flagError{errors.New("--email and --password are required")}
	}
	if len(input.Password) < 8 {
		return flagError{errors.New("--password must be at least 8 characters")}
	}

	ctx := context.Background()
	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	authService := service.NewAuthService(
		repository.NewUserRepository(db.DB()),
		repository.NewRefreshTokenRepository(db.DB()),
		a.cfg.JWT,
	)

	user, err := authService.CreateUser(ctx, input)
	if err != nil {
		return err
	}

	a.logger.Info("Admin account created", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	fmt.Fprintf(a.stdout, "created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
