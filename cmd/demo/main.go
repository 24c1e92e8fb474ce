// File: cmd/demo/main.go
//
// demo walks through issuance and redemption on the in-memory store with a
// simulated clock: alice redeems a code, bob is refused, and a second code
// expires before carol can use it.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/application"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/config"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/domain/model"
	"github.com/Ready-To-Work-High-School/jobseekaroo-sub000/internal/infra/logging"
)

type simClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	fmt.Printf("\n-- clock advanced %s, now %s --\n", d, c.Now().Format(time.RFC3339))
}

func main() {
	ctx := context.Background()
	cfg, err := config.Parse([]byte("qr:\n  base_url: https://jobs.example.org/redeem\n"), true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	clock := &simClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	c, err := application.Build(ctx, cfg, logging.Nop(), application.WithClock(clock))
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer c.Close()
	f := application.FromContainer(c)

	say := func(s string, err error) {
		if err != nil {
			log.Fatalf("demo: %v", err)
		}
		fmt.Println(s)
	}

	fmt.Println("== issue two student codes (30 days) and one employer code (1 day) ==")
	say(f.HandleIssue(ctx, model.BatchRequest{Amount: 2, Category: model.CategoryStudent, ExpireInDays: 30, Label: "demo"}))
	say(f.HandleIssue(ctx, model.BatchRequest{Amount: 1, Category: model.CategoryEmployer, ExpireInDays: 1, Label: "demo"}))

	student := model.CategoryStudent
	employer := model.CategoryEmployer
	students, _ := c.Admin.List(ctx, model.CodeFilter{Category: &student})
	employers, _ := c.Admin.List(ctx, model.CodeFilter{Category: &employer})

	clock.advance(2 * time.Hour)
	fmt.Println("== alice redeems, then bob tries the same code ==")
	say(f.HandleRedeem(ctx, students[0].Code, "alice"))
	say(f.HandleRedeem(ctx, students[0].Code, "bob"))

	fmt.Println("== bob scans the QR for the other student code ==")
	u, _, err := c.QR.Encode(students[1], "", true)
	say(u, err)
	say(f.HandleRedeem(ctx, u, "bob"))

	clock.advance(36 * time.Hour)
	fmt.Println("== carol tries the employer code after it expired ==")
	say(f.HandleCheck(ctx, employers[0].Code))
	say(f.HandleRedeem(ctx, employers[0].Code, "carol"))

	fmt.Println("\n== stats ==")
	say(f.HandleStats(ctx))
}
