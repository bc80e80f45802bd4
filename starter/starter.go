package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.temporal.io/sdk/client"

	"print-order-system/models"
	"print-order-system/paymentgw"
	"print-order-system/workflows"
)

const (
	TaskQueueName = "print-order-queue"
)

func main() {
	// Checkout flags
	customerID := flag.String("customer", "", "Customer ID")
	customerName := flag.String("name", "Test Customer", "Customer name")
	customerEmail := flag.String("email", "customer@example.com", "Customer email")
	product := flag.String("product", "sticker", "Product name")
	quantity := flag.Int("quantity", 500, "Quantity")
	unitPrice := flag.Int64("unit-price", 3, "Unit price in minor currency units")
	currency := flag.String("currency", "INR", "Currency code")
	artifact := flag.String("artifact", "", "Uploaded artifact reference")
	optimistic := flag.Bool("optimistic", false, "Assume capture succeeded when the widget callback times out")
	paymentDeadline := flag.Duration("payment-deadline", 5*time.Minute, "Widget callback deadline")

	// Operations on a running workflow
	workflowID := flag.String("workflow-id", "", "Workflow ID for callback/query operations")
	callback := flag.String("callback", "", "Deliver a widget callback (success, failure or dismissed)")
	paymentRef := flag.String("payment-ref", "", "External payment reference for a success callback")
	reason := flag.String("reason", "", "Failure reason for a failure callback")
	query := flag.Bool("query", false, "Query checkout session state")

	// Administrative override
	adminSet := flag.String("admin-set-fulfillment", "", "Force a fulfillment status, bypassing transition checks")
	adminOrder := flag.String("order-id", "", "Order ID for administrative operations")
	adminActor := flag.String("actor", "", "Acting administrator for override operations")
	flag.Parse()

	temporalAddress := os.Getenv("TEMPORAL_ADDRESS")
	if temporalAddress == "" {
		temporalAddress = "localhost:7233"
	}

	c, err := client.Dial(client.Options{
		HostPort: temporalAddress,
	})
	if err != nil {
		log.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	if *callback != "" {
		if *workflowID == "" {
			log.Fatal("Workflow ID is required for callback delivery. Use -workflow-id")
		}
		sendCallback(ctx, c, *workflowID, *callback, *paymentRef, *reason)
		return
	}

	if *query {
		if *workflowID == "" {
			log.Fatal("Workflow ID is required for query operations. Use -workflow-id")
		}
		queryCheckoutState(ctx, c, *workflowID)
		return
	}

	if *adminSet != "" {
		if *adminOrder == "" || *adminActor == "" {
			log.Fatal("Administrative override requires -order-id and -actor")
		}
		forceFulfillment(ctx, c, *adminOrder, *adminSet, *adminActor)
		return
	}

	if *customerID == "" {
		log.Fatal("Customer ID is required. Use -customer")
	}

	startCheckout(ctx, c, workflows.CheckoutRequest{
		Draft: models.OrderDraft{
			CustomerID:     *customerID,
			CustomerName:   *customerName,
			CustomerEmail:  *customerEmail,
			Product:        *product,
			Quantity:       *quantity,
			UnitPriceMinor: *unitPrice,
			Currency:       *currency,
			DeliveryAddress: models.Address{
				Line1:      "42 Press Lane",
				City:       "Pune",
				State:      "MH",
				PostalCode: "411001",
			},
			ArtifactRef: *artifact,
		},
		Policy: workflows.Policy{
			PaymentDeadline:   *paymentDeadline,
			OptimisticCapture: *optimistic,
		},
	})
}

func startCheckout(ctx context.Context, c client.Client, req workflows.CheckoutRequest) {
	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("checkout-%s-%d", req.Draft.CustomerID, time.Now().Unix()),
		TaskQueue: TaskQueueName,
	}

	log.Printf("Starting checkout for customer %s: %d x %s (%d %s)",
		req.Draft.CustomerID, req.Draft.Quantity, req.Draft.Product,
		req.Draft.TotalMinor(), req.Draft.Currency)

	we, err := c.ExecuteWorkflow(ctx, workflowOptions, workflows.CheckoutWorkflow, req)
	if err != nil {
		log.Fatalf("Unable to execute workflow: %v", err)
	}

	log.Printf("Started checkout session")
	log.Printf("WorkflowID: %s", we.GetID())
	log.Printf("RunID: %s", we.GetRunID())
	log.Println("\nTo deliver the widget callback, run:")
	log.Printf("  go run starter/starter.go -callback success -payment-ref pay_123 -workflow-id %s-payment", we.GetID())
	log.Println("To query session state, run:")
	log.Printf("  go run starter/starter.go -query -workflow-id %s", we.GetID())

	log.Println("\nWaiting for checkout to complete...")
	var result workflows.CheckoutResult
	if err := we.Get(ctx, &result); err != nil {
		log.Fatalf("Checkout completed with error: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal result: %v", err)
	}
	log.Println("Checkout result:")
	fmt.Println(string(out))
}

func sendCallback(ctx context.Context, c client.Client, workflowID, event, paymentRef, reason string) {
	var cbEvent paymentgw.CallbackEvent
	switch event {
	case "success":
		cbEvent = paymentgw.CallbackSuccess
	case "failure":
		cbEvent = paymentgw.CallbackFailure
	case "dismissed":
		cbEvent = paymentgw.CallbackDismissed
	default:
		log.Fatalf("Unknown callback event: %s. Valid events: success, failure, dismissed", event)
	}

	cb := paymentgw.Callback{
		Event:      cbEvent,
		PaymentRef: paymentRef,
		Reason:     reason,
	}

	log.Printf("Delivering %s callback to workflow: %s", event, workflowID)
	if err := c.SignalWorkflow(ctx, workflowID, "", workflows.SignalPaymentCallback, cb); err != nil {
		log.Fatalf("Failed to deliver callback: %v", err)
	}
	log.Println("Callback delivered")
}

func queryCheckoutState(ctx context.Context, c client.Client, workflowID string) {
	resp, err := c.QueryWorkflow(ctx, workflowID, "", workflows.QueryCheckoutState)
	if err != nil {
		log.Fatalf("Failed to query workflow: %v", err)
	}

	var state workflows.CheckoutState
	if err := resp.Get(&state); err != nil {
		log.Fatalf("Failed to decode query result: %v", err)
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal state: %v", err)
	}
	log.Println("Checkout session state:")
	fmt.Println(string(out))
}

// forceFulfillment is the administrative surface's direct transition:
// it deliberately bypasses the reachability table and is recorded with
// the acting admin.
func forceFulfillment(ctx context.Context, c client.Client, orderID, status, actor string) {
	target := models.FulfillmentStatus(status)
	if !models.ValidFulfillmentStatus(target) {
		log.Fatalf("Unknown fulfillment status: %s", status)
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("admin-override-%s-%d", orderID, time.Now().Unix()),
		TaskQueue: TaskQueueName,
	}

	we, err := c.ExecuteWorkflow(ctx, workflowOptions, workflows.AdminOverrideWorkflow, workflows.AdminOverrideRequest{
		OrderID:     orderID,
		Fulfillment: target,
		Actor:       actor,
	})
	if err != nil {
		log.Fatalf("Unable to execute override: %v", err)
	}

	var order models.Order
	if err := we.Get(ctx, &order); err != nil {
		log.Fatalf("Override failed: %v", err)
	}
	log.Printf("Order %s forced to %s (progress %d) by %s", order.ID, order.Fulfillment, order.Progress, actor)
}
