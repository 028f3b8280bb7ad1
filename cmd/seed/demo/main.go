package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/repository"
	"github.com/mansoorceksport/frontdesk/internal/service"
	"github.com/mansoorceksport/frontdesk/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type demoMember struct {
	Name  string
	Phone string
	Plan  domain.PlanCode
	Price int64
}

func main() {
	mongoURI := flag.String("mongo", "mongodb://localhost:27017/?replicaSet=rs0", "MongoDB connection URI")
	dbName := flag.String("db", "frontdesk", "Database name")
	ownerEmail := flag.String("owner", "", "Email of the owner account to provision")
	deskEmail := flag.String("desk", "", "Email of a front desk account to provision")
	flag.Parse()

	log := logger.New("info")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(*dbName)
	clock := domain.SystemClock{}
	loc := time.UTC

	staffRepo := repository.NewMongoStaffRepository(db)
	memberRepo := repository.NewMongoMemberRepository(db)
	membershipRepo := repository.NewMongoMembershipRepository(db)
	visitRepo := repository.NewMongoVisitRepository(db)
	expenseRepo := repository.NewMongoExpenseRepository(db)
	ancillaryRepo := repository.NewMongoAncillaryServiceRepository(db)
	tx := repository.NewMongoTxManager(client)
	locker := repository.NewLocalMemberLocker()

	lifecycle := service.NewLifecycleManager(membershipRepo, memberRepo, tx, locker, nil, clock, loc, 10*time.Second, nil, log)
	coordinator := service.NewCheckInCoordinator(lifecycle, memberRepo, visitRepo, tx, locker, nil, clock, loc, 10*time.Second, nil, log)
	members := service.NewMemberService(memberRepo, visitRepo, nil, clock, loc, log)
	aggregation := service.NewAggregationEngine(membershipRepo, visitRepo, expenseRepo, ancillaryRepo, loc)
	finance := service.NewFinanceService(expenseRepo, ancillaryRepo, memberRepo, aggregation, nil, nil, clock, loc, 0, log)

	provisionStaff(ctx, staffRepo, *ownerEmail, "Owner", domain.RoleOwner)
	provisionStaff(ctx, staffRepo, *deskEmail, "Front Desk", domain.RoleFrontDesk)

	roster := []demoMember{
		{Name: "Layla Haddad", Phone: "+962790000001", Plan: domain.PlanOneMonth, Price: 3500},
		{Name: "Omar Saleh", Phone: "+962790000002", Plan: domain.PlanTwelveSessions, Price: 2500},
		{Name: "Rana Khoury", Phone: "+962790000003", Plan: domain.PlanThreeMonths, Price: 9000},
		{Name: "Yousef Nasser", Phone: "+962790000004", Plan: domain.PlanSingleSession, Price: 300},
	}

	for _, d := range roster {
		member, err := members.Register(ctx, d.Name, d.Phone)
		if err != nil {
			log.Fatalf("Error creating member %s: %v", d.Name, err)
		}
		m, err := lifecycle.AddMembership(ctx, member.ID, d.Plan, d.Price)
		if err != nil {
			log.Fatalf("Error adding %s to %s: %v", d.Plan, d.Name, err)
		}
		result := coordinator.CheckIn(ctx, member.ID)
		fmt.Printf("Created: %s (%s until %s) check-in: %s\n", d.Name, d.Plan, domain.DayKey(m.EndDate), result.Outcome)
	}

	expenses := []domain.Expense{
		{Type: "rent", Amount: 60000, Description: "Monthly rent"},
		{Type: "utilities", Amount: 8500, Description: "Electricity and water"},
	}
	for _, e := range expenses {
		e.IncurredAt = clock.Now()
		if err := finance.RecordExpense(ctx, &e); err != nil {
			log.Fatalf("Error recording expense %s: %v", e.Type, err)
		}
	}

	fmt.Println("Seeding Demo Data Complete.")
}

func provisionStaff(ctx context.Context, repo domain.StaffRepository, email, name, role string) {
	if email == "" {
		return
	}
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		fmt.Printf("Skipping existing staff: %s\n", email)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		fmt.Printf("Error looking up %s: %v\n", email, err)
		return
	}
	staff := &domain.Staff{Email: email, Name: name, Roles: []string{role}}
	if err := repo.Create(ctx, staff); err != nil {
		fmt.Printf("Error creating staff %s: %v\n", email, err)
		return
	}
	fmt.Printf("Provisioned %s: %s\n", role, email)
}
