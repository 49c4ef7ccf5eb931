package router_test

import (
	"fmt"

	"github.com/bright8192/ClawRouter/internal/router"
	"github.com/bright8192/ClawRouter/internal/routerconfig"
)

// ExampleOrchestrator_Route demonstrates routing a simple prompt end to end.
func ExampleOrchestrator_Route() {
	o, err := router.New(routerconfig.Default())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	decision := o.Route(router.Request{Prompt: "what time is it"})
	fmt.Printf("Tier: %s\n", decision.Tier)
	fmt.Printf("Model: %s\n", decision.Model)

	// Output:
	// Tier: SIMPLE
	// Model: claude-haiku
}
