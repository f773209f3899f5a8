package main

import (
	"context"
	"digimart/internal/auth"
	"digimart/internal/domain"
	"digimart/internal/entitlement"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/repo"
	"digimart/internal/service"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"
)

const adminContact = "923264236393"

func main() {
	ctx := context.Background()
	logger := zap.NewNop()
	store := repo.NewMemoryStore()

	outbox := messaging.NewWhatsAppChannel(100, logger)
	numbers := service.NewOrderNumberGenerator("DIGI", service.DefaultOrderNumberAttempts)
	catalog := service.NewCatalogService(store.Tx(), store.Products(), logger)
	orders := service.NewOrderService(store.Tx(), store.Orders(), store.Products(), numbers,
		service.Notifier{Dispatcher: syncDispatcher{outbox}, Composer: messaging.Composer{BaseURL: "http://localhost:8080"}, AdminContact: adminContact},
		logger)
	authSvc := service.NewAuthService(store.Users(), auth.NewPasswordHasher(auth.DefaultBcryptCost),
		auth.NewTokenManager("simulate", time.Hour), logger)

	adminUser, err := authSvc.EnsureAdmin(ctx, "Main Admin", "admin@digimart.pro", "simulate-admin")
	if err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	admin := domain.ActorFor(*adminUser)

	if _, err := service.Seed(ctx, catalog, admin); err != nil {
		log.Fatalf("seed: %v", err)
	}
	discount := 29.99
	kit, err := catalog.AddProduct(ctx, admin, domain.ProductSpec{
		Title:         "Starter Kit",
		Price:         49.99,
		DiscountPrice: &discount,
		Category:      domain.CategorySoftware,
		FileURL:       "https://example.com/files/starter-kit.zip",
		SourceCode:    []domain.SourceFile{{Filename: "main.py", Language: domain.LangPython, Content: "print('hello')\n"}},
	})
	if err != nil {
		log.Fatalf("add product: %v", err)
	}

	fmt.Println("--- STARTING SIMULATION (10 ORDERS) ---")
	for i := 0; i < 10; i++ {
		contact := fmt.Sprintf("+1000000%04d", i)
		order, err := orders.CreateOrder(ctx, domain.Anonymous, kit.ID, contact)
		if err != nil {
			log.Printf("Create Failed: %v", err)
			continue
		}
		fmt.Printf("[%d] Order %s for %s ($%s) ... ", i+1, order.OrderNumber, contact, messaging.FormatAmount(order.Amount))

		// every third order is rejected, the rest are approved
		next := domain.OrderPaid
		if i%3 == 2 {
			next = domain.OrderCancelled
		}
		if _, err := orders.UpdateOrderStatus(ctx, admin, order.ID, next); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}
		fmt.Printf("%s\n", next)

		view, err := orders.Access(ctx, order.OrderNumber)
		if err != nil {
			fmt.Printf("    -> access lookup failed: %v\n", err)
			continue
		}
		printView(*view)
		fmt.Println("---------------------------------------------------")
	}

	// a customer may not approve their own order
	order, err := orders.CreateOrder(ctx, domain.Anonymous, kit.ID, "buyer@example.com")
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	if _, err := orders.UpdateOrderStatus(ctx, domain.Anonymous, order.ID, domain.OrderPaid); err != nil {
		fmt.Printf("Anonymous approval of %s rejected: %v\n", order.OrderNumber, err)
	}

	fmt.Printf("\nOutbox holds %d WhatsApp hand-offs; latest:\n  %s\n", len(outbox.Outbox()), outbox.Outbox()[len(outbox.Outbox())-1].Link)
}

func printView(v entitlement.View) {
	fmt.Printf("    -> Access: %s", v.State)
	switch v.State {
	case entitlement.Unlocked:
		fmt.Printf(" (%d source files, download %s)\n", len(v.SourceFiles), v.DownloadURL)
	case entitlement.Locked:
		fmt.Printf(" (contact %s to pay)\n", v.AdminContact)
	default:
		fmt.Println()
	}
}

// syncDispatcher sends inline so the printout follows order creation.
type syncDispatcher struct {
	channel messaging.Channel
}

func (d syncDispatcher) Dispatch(ctx context.Context, contact, text string) {
	if err := d.channel.Send(ctx, contact, text); err != nil {
		log.Printf("hand-off to %s failed: %v", contact, err)
	}
}
