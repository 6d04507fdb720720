package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common subscription workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("pick_next_month").
		Description("Choose oils for the next month that can still be changed.").
		Argument("mood", "What the customer wants the home to smell like (calm, fresh, warm...)", false).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			mood := args["mood"]
			if mood == "" {
				mood = "no preference given"
			}
			return userPrompt("Next Month Selection", fmt.Sprintf(`Help me choose aroma oils for next month.

**Mood:** %s

1. Read aromabox://subscription/next-month to see my devices, current oils and the deadline
2. Read aromabox://catalog to see every oil with its category

Suggest one oil per device that fits the mood. Avoid repeating the same oil
in every room unless I asked for it. Once I agree, apply each choice with
subscription.set_oil, passing the month, the device_id and the oil_id.
If the month is no longer editable, tell me the next month I can change.`, mood)), nil
		})

	srv.Prompt("compare_plans").
		Description("Compare the current plan with the others and walk through a plan change.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Plan Comparison", `Help me decide whether to switch plans.

1. Read aromabox://subscription for my current plan, devices and progress
2. Read aromabox://catalog for every plan's duration and discount

For each other plan, work out the monthly total for my devices after the
discount and the full amount I would pay up front. If I want to switch:
- call plan.propose with the plan_id and show me the quoted amount
- only after I accept, call plan.confirm
- then call plan.pay with the method I choose

Never call plan.pay without my explicit go-ahead.`), nil
		})

	srv.Prompt("subscription_review").
		Description("Summarize how the subscription is going month by month.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Subscription Review", `Give me a short review of my aroma subscription.

Use aromabox://subscription and aromabox://subscription/timeline to report:
- how many months are done and how many remain
- which upcoming months I can still change and their deadlines
- any device with no oil chosen for an upcoming month`), nil
		})

	return nil
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
