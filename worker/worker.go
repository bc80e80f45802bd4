package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"print-order-system/activities"
	"print-order-system/billing"
	"print-order-system/paymentgw"
	"print-order-system/store"
	"print-order-system/workflows"
)

const (
	WorkerVersion = "1.0.0"
	TaskQueueName = "print-order-queue"
)

func main() {
	temporalAddress := envOr("TEMPORAL_ADDRESS", "localhost:7233")
	gatewayURL := envOr("PAYMENT_GATEWAY_URL", "http://localhost:8081")
	rendererURL := envOr("RENDERER_URL", "http://localhost:8082")
	dispatcherURL := envOr("DISPATCHER_URL", "http://localhost:8083")
	merchantName := envOr("MERCHANT_NAME", "PrintDesk")
	mongoURI := os.Getenv("MONGO_URI")
	mongoDatabase := envOr("MONGO_DATABASE", "printorders")

	// With no MONGO_URI the worker runs on the in-process store, which
	// is only suitable for local development.
	var orders store.OrderStore
	var invoices store.InvoiceStore
	if mongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			log.Fatalf("Unable to connect to MongoDB: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())

		if err := mongoClient.Ping(ctx, nil); err != nil {
			log.Fatalf("MongoDB ping failed: %v", err)
		}
		m := store.NewMongo(mongoClient.Database(mongoDatabase))
		orders, invoices = m, m
		log.Printf("Order store: MongoDB (%s)", mongoDatabase)
	} else {
		mem := store.NewMemory()
		orders, invoices = mem, mem
		log.Println("Order store: in-memory (local development only)")
	}

	c, err := client.Dial(client.Options{
		HostPort: temporalAddress,
	})
	if err != nil {
		log.Fatalf("Unable to create Temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, TaskQueueName, worker.Options{
		MaxConcurrentActivityExecutionSize:     100,
		MaxConcurrentWorkflowTaskExecutionSize: 50,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.CheckoutWorkflow)
	w.RegisterWorkflow(workflows.PaymentWorkflow)
	w.RegisterWorkflow(workflows.InvoiceWorkflow)
	w.RegisterWorkflow(workflows.AdminOverrideWorkflow)

	// Register activities
	orderActivities := activities.NewOrderActivities(orders)
	w.RegisterActivity(orderActivities.CheckDuplicate)
	w.RegisterActivity(orderActivities.CreateOrder)
	w.RegisterActivity(orderActivities.GetOrder)
	w.RegisterActivity(orderActivities.Transition)
	w.RegisterActivity(orderActivities.RecordSettlement)
	w.RegisterActivity(orderActivities.ForceTransition)

	paymentActivities := activities.NewPaymentActivities(paymentgw.NewClient(gatewayURL, merchantName))
	w.RegisterActivity(paymentActivities.CreateGatewayOrder)

	seller := billing.Seller{
		Name:    merchantName,
		Email:   envOr("MERCHANT_EMAIL", "billing@printdesk.example"),
		Address: os.Getenv("MERCHANT_ADDRESS"),
		TaxID:   os.Getenv("MERCHANT_TAX_ID"),
	}
	invoiceActivities := activities.NewInvoiceActivities(
		orders, invoices,
		billing.NewRenderer(rendererURL),
		billing.NewDispatcher(dispatcherURL),
		seller,
	)
	w.RegisterActivity(invoiceActivities.EnsureInvoiceID)
	w.RegisterActivity(invoiceActivities.RenderInvoice)
	w.RegisterActivity(invoiceActivities.PersistInvoice)
	w.RegisterActivity(invoiceActivities.DeliverInvoice)

	log.Println("Starting Temporal worker...")
	log.Printf("Worker Version: %s", WorkerVersion)
	log.Printf("Temporal address: %s", temporalAddress)
	log.Printf("Task queue: %s", TaskQueueName)
	log.Printf("Payment gateway: %s", gatewayURL)
	log.Printf("Renderer: %s", rendererURL)
	log.Printf("Dispatcher: %s", dispatcherURL)
	log.Println("Registered workflows: CheckoutWorkflow, PaymentWorkflow, InvoiceWorkflow, AdminOverrideWorkflow")

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("Unable to start worker: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
