package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opsboard.io/internal/config"
	"opsboard.io/internal/migrate"
	migrations "opsboard.io/ops/migrations"
)

func main() {
	log.SetFlags(0)
	var (
		dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
		pgssl   = flag.Bool("pgssl", os.Getenv("PGSSL") == "true", "require TLS for PostgreSQL")
		timeout = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg := config.Config{DatabaseURL: *dsn, PGSSL: *pgssl}
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrations.SQL(), migrations.Seeds())

	switch flag.Arg(0) {
	case "up":
		var applied []string
		if applied, err = mgr.Up(ctx); err == nil {
			report("applied", applied)
		}
	case "down":
		var name string
		if name, err = mgr.Down(ctx); err == nil {
			fmt.Println("reverted", name)
		}
	case "seed":
		var applied []string
		if applied, err = mgr.Seed(ctx); err == nil {
			report("seeded", applied)
		}
	case "status":
		var history []string
		if history, err = mgr.Status(ctx); err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func report(verb string, names []string) {
	if len(names) == 0 {
		fmt.Println("nothing to do")
		return
	}
	for _, n := range names {
		fmt.Println(verb, n)
	}
}
