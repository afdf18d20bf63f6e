package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aqarlink/aqarlink/internal/api"
	"github.com/aqarlink/aqarlink/internal/auth"
	"github.com/aqarlink/aqarlink/internal/config"
	"github.com/aqarlink/aqarlink/internal/estate"
	"github.com/aqarlink/aqarlink/internal/guard"
	"github.com/aqarlink/aqarlink/internal/logging"
	"github.com/aqarlink/aqarlink/internal/session"
	"github.com/aqarlink/aqarlink/internal/wizard"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewText(cfg.LogLevel)

	store, err := auth.NewFileStore(cfg.StateDir)
	if err != nil {
		logger.Error("open state dir", "error", err)
		os.Exit(1)
	}

	client := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, auth.TokenSource(store))
	svc := auth.NewService(client, store)
	manager := session.NewManager(svc)
	manager.Init()
	repo := estate.NewRepository(client)

	app := &cli{
		cfg:     cfg,
		logger:  logger,
		in:      bufio.NewScanner(os.Stdin),
		manager: manager,
		repo:    repo,
	}
	app.run(context.Background())
}

type cli struct {
	cfg     config.Client
	logger  *slog.Logger
	in      *bufio.Scanner
	manager *session.Manager
	repo    *estate.Repository
}

func (a *cli) run(ctx context.Context) {
	fmt.Println("AqarLink lead intake")
	for {
		switch guard.Decide(a.manager.Snapshot()) {
		case guard.ShowLoading:
			time.Sleep(50 * time.Millisecond)
		case guard.RedirectLogin:
			if !a.loginFlow(ctx) {
				return
			}
		case guard.RedirectRegister:
			if !a.registerFlow(ctx) {
				return
			}
		case guard.Allow:
			if !a.menu(ctx) {
				return
			}
		}
	}
}

// prompt reads one trimmed line; ok is false on EOF.
func (a *cli) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.in.Scan() {
		fmt.Println()
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

// loginFlow walks phone entry and code verification. Returns false to quit.
func (a *cli) loginFlow(ctx context.Context) bool {
	phone, ok := a.prompt("phone number (or q to quit): ")
	if !ok || phone == "q" {
		return false
	}
	if err := a.manager.Login(ctx, phone); err != nil {
		fmt.Printf("could not send code: %v\n", err)
		return true
	}
	fmt.Println("verification code sent")

	cooldown := auth.NewCooldown(a.cfg.ResendCooldown)
	cooldown.Start()
	for {
		code, ok := a.prompt("enter code (r to resend, b to start over): ")
		if !ok {
			return false
		}
		switch code {
		case "b":
			return true
		case "r":
			if !cooldown.Ready() {
				fmt.Printf("please wait %ds before resending\n", int(cooldown.Remaining().Seconds())+1)
				continue
			}
			if err := a.manager.Login(ctx, phone); err != nil {
				fmt.Printf("could not resend code: %v\n", err)
				continue
			}
			cooldown.Start()
			fmt.Println("verification code resent")
		default:
			if err := a.manager.VerifyCode(ctx, phone, code); err != nil {
				fmt.Printf("verification failed: %v\n", err)
				continue
			}
			return true
		}
	}
}

// registerFlow finishes onboarding for a verified new user.
func (a *cli) registerFlow(ctx context.Context) bool {
	name, ok := a.prompt("your full name (or q to quit): ")
	if !ok || name == "q" {
		return false
	}
	if err := a.manager.CompleteRegistration(ctx, name); err != nil {
		fmt.Printf("registration failed: %v\n", err)
	}
	return true
}

func (a *cli) menu(ctx context.Context) bool {
	state := a.manager.Snapshot()
	fmt.Printf("\nlogged in as %s (%s)\n", state.User.Name, state.User.PhoneNumber)
	fmt.Println("  1) my requests")
	fmt.Println("  2) new request")
	fmt.Println("  3) view request by id")
	fmt.Println("  4) all requests")
	fmt.Println("  5) logout")
	fmt.Println("  q) quit")
	choice, ok := a.prompt("> ")
	if !ok || choice == "q" {
		return false
	}
	switch choice {
	case "1":
		a.listMine(ctx)
	case "2":
		a.newRequest(ctx)
	case "3":
		a.viewByID(ctx)
	case "4":
		a.listAll(ctx)
	case "5":
		a.manager.Logout()
		fmt.Println("logged out")
	}
	return true
}

// listMine loads the user's requests. Failures are soft: an empty list is
// shown and the error only logged, so the menu stays usable.
func (a *cli) listMine(ctx context.Context) {
	state := a.manager.Snapshot()
	requests, err := a.repo.ListMine(ctx, state.User.ID)
	if err != nil {
		a.logger.Warn("load my requests", "error", err)
		requests = nil
	}
	printRequests(requests)
}

func (a *cli) listAll(ctx context.Context) {
	requests, err := a.repo.ListAll(ctx)
	if err != nil {
		a.logger.Warn("load requests", "error", err)
		requests = nil
	}
	printRequests(requests)
}

func (a *cli) viewByID(ctx context.Context) {
	id, ok := a.prompt("request id: ")
	if !ok || id == "" {
		return
	}
	request, err := a.repo.GetByID(ctx, id)
	if err != nil {
		fmt.Printf("could not load request: %v\n", err)
		return
	}
	printRequest(request)
}

// newRequest drives the submission wizard from the terminal. Step changes
// triggered off the prompt goroutine (the auto-advance after selecting a
// property type) are observed through the OnChange hook.
func (a *cli) newRequest(ctx context.Context) {
	w := wizard.New(a.repo, a.manager, a.cfg.AutoAdvanceDelay)
	defer w.Close()

	changes := make(chan struct{}, 8)
	w.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	for w.Step() != wizard.StepSubmitted {
		switch w.Step() {
		case wizard.StepPropertyType:
			if !a.stepPropertyType(w, changes) {
				return
			}
		case wizard.StepLocationBudget:
			if !a.stepLocationBudget(w) {
				return
			}
		case wizard.StepDetails:
			if !a.stepDetails(w) {
				return
			}
		case wizard.StepReview:
			done, quit := a.stepReview(ctx, w)
			if quit {
				return
			}
			if done {
				return
			}
		}
	}
}

func (a *cli) stepPropertyType(w *wizard.Wizard, changes <-chan struct{}) bool {
	fmt.Println("\nproperty type:")
	for i, pt := range wizard.PropertyTypes {
		fmt.Printf("  %d) %s\n", i+1, pt)
	}
	choice, ok := a.prompt("> ")
	if !ok {
		return false
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(wizard.PropertyTypes) {
		fmt.Println("pick a number from the list")
		return true
	}
	w.SelectPropertyType(wizard.PropertyTypes[idx-1])

	// Wait out the auto-advance before prompting for the next step.
	deadline := time.After(a.cfg.AutoAdvanceDelay + time.Second)
	for w.Step() == wizard.StepPropertyType {
		select {
		case <-changes:
		case <-deadline:
			return true
		}
	}
	return true
}

func (a *cli) stepLocationBudget(w *wizard.Wizard) bool {
	location, ok := a.prompt("location: ")
	if !ok {
		return false
	}
	w.SetLocation(location)
	budget, ok := a.prompt("budget: ")
	if !ok {
		return false
	}
	w.SetBudget(budget)
	if !w.Next() {
		fmt.Println(w.Err())
	}
	return true
}

func (a *cli) stepDetails(w *wizard.Wizard) bool {
	fmt.Println("optional details (leave blank to skip)")
	setters := []struct {
		label string
		set   func(string)
	}{
		{"bedrooms: ", w.SetBedrooms},
		{"bathrooms: ", w.SetBathrooms},
		{"surface: ", w.SetSurface},
		{"district: ", w.SetDistrict},
		{"additional requirements: ", w.SetAdditionalRequirements},
	}
	for _, s := range setters {
		value, ok := a.prompt(s.label)
		if !ok {
			return false
		}
		s.set(value)
	}
	w.Next()
	return true
}

// stepReview prints the draft and submits on confirmation. done reports a
// successful submission, quit an EOF.
func (a *cli) stepReview(ctx context.Context, w *wizard.Wizard) (done, quit bool) {
	d := w.Draft()
	fmt.Println("\nreview:")
	fmt.Printf("  property type: %s\n", d.PropertyType)
	fmt.Printf("  location:      %s\n", d.Location)
	fmt.Printf("  budget:        %s\n", d.Budget)
	if d.Bedrooms != "" {
		fmt.Printf("  bedrooms:      %s\n", d.Bedrooms)
	}
	if d.Bathrooms != "" {
		fmt.Printf("  bathrooms:     %s\n", d.Bathrooms)
	}
	if d.Surface != "" {
		fmt.Printf("  surface:       %s\n", d.Surface)
	}
	if d.District != "" {
		fmt.Printf("  district:      %s\n", d.District)
	}
	if d.AdditionalRequirements != "" {
		fmt.Printf("  requirements:  %s\n", d.AdditionalRequirements)
	}
	choice, ok := a.prompt("submit? (y = submit, b = back, c = cancel): ")
	if !ok {
		return false, true
	}
	switch choice {
	case "b":
		w.Back()
		return false, false
	case "c":
		return true, false
	case "y":
		created, err := w.Submit(ctx)
		if err != nil {
			fmt.Printf("submit failed: %v\n", err)
			return false, false
		}
		fmt.Printf("request submitted, id %s\n", created.ID)
		return true, false
	}
	return false, false
}

func printRequests(requests []estate.Request) {
	if len(requests) == 0 {
		fmt.Println("no requests")
		return
	}
	for _, r := range requests {
		fmt.Printf("  %s  %-12s %-10s %s, %s\n",
			r.CreatedAt.Local().Format("2006-01-02"), r.Status, r.PropertyType, r.Location, r.Budget)
		fmt.Printf("    id: %s\n", r.ID)
	}
}

func printRequest(r estate.Request) {
	fmt.Printf("id:            %s\n", r.ID)
	fmt.Printf("status:        %s\n", r.Status)
	fmt.Printf("property type: %s\n", r.PropertyType)
	fmt.Printf("location:      %s\n", r.Location)
	fmt.Printf("budget:        %s\n", r.Budget)
	if r.Bedrooms != "" {
		fmt.Printf("bedrooms:      %s\n", r.Bedrooms)
	}
	if r.Bathrooms != "" {
		fmt.Printf("bathrooms:     %s\n", r.Bathrooms)
	}
	if r.Surface != "" {
		fmt.Printf("surface:       %s\n", r.Surface)
	}
	if r.District != "" {
		fmt.Printf("district:      %s\n", r.District)
	}
	if r.AdditionalRequirements != "" {
		fmt.Printf("requirements:  %s\n", r.AdditionalRequirements)
	}
	fmt.Printf("created:       %s\n", r.CreatedAt.Local().Format(time.RFC822))
}
