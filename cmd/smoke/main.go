package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"opsboard.io/internal/client"
	"opsboard.io/internal/httpapi"
	"opsboard.io/internal/ids"
)

// smoke registers a throwaway identity against a running API and walks the
// protected routes once.
func main() {
	log.SetFlags(0)
	var (
		baseURL  = flag.String("url", envOr("OPSBOARD_URL", "http://localhost:4000"), "API base URL")
		grpcAddr = flag.String("grpc", os.Getenv("GRPC_ADDR"), "gRPC address; empty skips the health probe")
		timeout  = flag.Duration("timeout", 10*time.Second, "overall deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*baseURL, nil)
	email := fmt.Sprintf("smoke-%s@opsboard.local", ids.New())
	password := ids.New()

	if _, err := c.Register(ctx, "Smoke Test", email, password); err != nil {
		log.Fatalf("register: %v", err)
	}
	user, err := c.Login(ctx, email, password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	project, err := c.CreateProject(ctx, "smoke "+user.ID, "")
	if err != nil {
		log.Fatalf("create project: %v", err)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if _, err := c.LogWork(ctx, project.ID, today, 0.25, "smoke run"); err != nil {
		log.Fatalf("log work: %v", err)
	}
	overview, err := c.Overview(ctx)
	if err != nil {
		log.Fatalf("overview: %v", err)
	}
	fmt.Printf("ok user=%s project=%s statuses=%d days=%d\n", user.ID, project.ID, len(overview.ProjectSummary), len(overview.LastWeekHours))

	if *grpcAddr == "" {
		return
	}
	conn, err := client.Dial(*grpcAddr)
	if err != nil {
		log.Fatalf("dial grpc %s: %v", *grpcAddr, err)
	}
	defer conn.Close()
	st, err := client.Health(ctx, conn, httpapi.ServiceName)
	if err != nil {
		log.Fatalf("grpc health: %v", err)
	}
	fmt.Printf("grpc health=%s\n", st)

	sess, err := client.WhoAmI(ctx, conn, c.Token())
	if err != nil {
		log.Fatalf("grpc whoami: %v", err)
	}
	if sess.ID != user.ID {
		log.Fatalf("grpc whoami returned %s, want %s", sess.ID, user.ID)
	}
	fmt.Printf("grpc whoami=%s\n", sess.Email)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
