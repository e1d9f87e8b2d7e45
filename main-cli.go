package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	conf "github.com/bartek5186/silverbene2woo/internal/config"
	"github.com/bartek5186/silverbene2woo/internal/db"
	"github.com/bartek5186/silverbene2woo/internal/integrations/orders"
	"github.com/bartek5186/silverbene2woo/internal/integrations/products"
	logs "github.com/bartek5186/silverbene2woo/internal/logs"
	syncer "github.com/bartek5186/silverbene2woo/internal/syncer"
)

var ver = "1.0.0"

const usage = "start | stop | reload | status | sync | orders | shipping <CC> | paths | quit"

func main() {
	appDir := mustAppDataDir("silverbene2woo")
	log := logs.New(filepath.Join(appDir, "app.log"), true)

	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Config error")
	}
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", cfgPath)
	}

	dbh, err := db.OpenAt(appDir, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("DB open error")
	}
	if err := dbh.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("DB migrate error")
	}
	log.Info().Str("db", dbh.Path).Str("driver", dbh.Driver).Msg("DB ready")
	defer dbh.Close()

	log.Info().Msg("Aplikacja (CLI) uruchomiona")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := syncer.New(log, cfg, dbh.DB)

	if cfg.AutoStart {
		if err := s.Start(ctx); err != nil {
			log.Error().Msgf("AutoStart nieudany: %v", err)
		} else {
			log.Info().Msgf("Silverbene2Woo Sync %s – działa", ver)
		}
	}

	// Prosta pętla poleceń w terminalu
	fmt.Println("Silverbene2Woo CLI", ver)
	fmt.Println("Komendy:", usage)
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			// stdin zamknięty (np. uruchomienie jako usługa) – czekamy na sygnał
			<-ctx.Done()
			s.Stop()
			return
		}
		fields := strings.Fields(strings.TrimSpace(line))
		cmd := ""
		if len(fields) > 0 {
			cmd = strings.ToLower(fields[0])
		}

		switch cmd {
		case "start":
			if err := s.Start(ctx); err != nil {
				log.Error().Msgf("Start error: %v", err)
				fmt.Println("Błąd startu:", err)
				continue
			}
			fmt.Println("Start OK")
		case "stop":
			s.Stop()
			fmt.Println("Zatrzymano")
		case "reload":
			newCfg, _, err := conf.LoadOrCreate(cfgPath)
			if err != nil {
				log.Error().Msgf("Błąd reloadu: %v", err)
				fmt.Println("Błąd reloadu:", err)
				continue
			}
			cfg = newCfg
			s.UpdateConfig(cfg)
			log.Info().Msg("Konfiguracja przeładowana")
			fmt.Println("Konfiguracja przeładowana")
		case "status":
			printStatus(s, dbh)
		case "sync":
			fmt.Println("Synchronizacja produktów...")
			if err := s.RunNow(ctx, products.Name, true); err != nil {
				fmt.Println("Błąd synchronizacji:", err)
			}
			if n, _ := products.LastNotice(dbh.DB); n != nil {
				fmt.Println(n.Message)
			}
		case "orders":
			if err := s.RunNow(ctx, orders.Name, true); err != nil {
				fmt.Println("Błąd wysyłki zamówień:", err)
				continue
			}
			fmt.Println("Zamówienia przetworzone (szczegóły w logu)")
		case "shipping":
			if len(fields) < 2 {
				fmt.Println("Użycie: shipping <kod kraju, np. US>")
				continue
			}
			methods, err := s.Supplier().GetShippingMethods(ctx, fields[1])
			if err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			if len(methods) == 0 {
				fmt.Println("Brak metod wysyłki")
			}
			for _, m := range methods {
				fmt.Printf("  %-12s %-30s %10s  %s\n", m.ID, m.Name, m.Price.StringFixed(2), m.Days)
			}
		case "paths":
			fmt.Println("Logi:", filepath.Join(appDir, "app.log"))
			fmt.Println("Config:", cfgPath)
			fmt.Println("DB:", dbh.Path)
		case "quit", "exit":
			cancel()
			s.Stop()
			time.Sleep(50 * time.Millisecond)
			return
		case "":
			// enter – ignoruj
		default:
			fmt.Println("Nieznana komenda. Użyj:", usage)
		}
	}
}

func printStatus(s *syncer.Syncer, dbh *db.Handle) {
	if s.IsRunning() {
		fmt.Println("Status: DZIAŁA")
	} else {
		fmt.Println("Status: ZATRZYMANY")
	}
	h, err := s.Health()
	if err != nil {
		fmt.Println("Błąd odczytu stanu:", err)
		return
	}
	fmt.Printf("Produkty w sklepie (cache): %d, problemy z linkami: %d\n", h.Links, h.Issues)
	if h.LastRun != nil {
		fmt.Printf("Ostatni przebieg: %s %s (%s)\n", h.LastRun.Kind, h.LastRun.Status, h.LastRun.StartedAt.Format(time.RFC3339))
	}
	if n, _ := products.LastNotice(dbh.DB); n != nil {
		fmt.Printf("[%s] %s\n", n.Type, n.Message)
	}
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
