package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"loveletter/backend/internal/auth"
	"loveletter/backend/internal/config"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
	"loveletter/backend/internal/storage/memory"
	"loveletter/backend/internal/storage/postgres"
)

// seed-demo 向数据库写入一对演示情侣账号及示例信件、纪念日。
//
// 用法: seed-demo [password]
// 默认密码 Dearly123456，两个账号 alice@dearly.local / bob@dearly.local。
func main() {
	password := "Dearly123456"
	if len(os.Args) >= 2 {
		password = os.Args[1]
	}
	if err := auth.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.Database.Type {
	case "postgres":
		store, err = postgres.NewStore(&cfg.Database)
	case "mysql":
		store, err = postgres.NewMySQLStore(&cfg.Database)
	default:
		store = memory.NewStore()
		fmt.Println("Note: no database configured, seeding in-memory store only.")
		fmt.Println("Data will be lost when this process exits; set DEARLY_DATABASE_TYPE to seed a real database.")
	}
	if err != nil {
		fmt.Printf("Failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	hashed, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	alice := newDemoUser("alice@dearly.local", "Alice", hashed, cfg.Invite.CodeTTL, now)
	bob := newDemoUser("bob@dearly.local", "Bob", hashed, cfg.Invite.CodeTTL, now)

	for _, u := range []*domain.User{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			fmt.Printf("Failed to create user %s: %v\n", u.Email, err)
			os.Exit(1)
		}
	}

	if err := store.PairUsers(ctx, alice.ID, bob.ID, now); err != nil {
		fmt.Printf("Failed to pair demo users: %v\n", err)
		os.Exit(1)
	}

	tomorrow := now.Add(24 * time.Hour)
	letters := []*domain.Letter{
		{
			ID:         uuid.New().String(),
			SenderID:   alice.ID,
			ReceiverID: bob.ID,
			Content:    "今天路过我们第一次见面的咖啡店，突然很想你。",
			ThemeID:    "default",
			CreatedAt:  now.Add(-48 * time.Hour),
		},
		{
			ID:         uuid.New().String(),
			SenderID:   bob.ID,
			ReceiverID: alice.ID,
			Content:    "谢谢你昨天的信，晚上给你打电话。",
			ThemeID:    "warm",
			IsOpened:   true,
			OpenedAt:   &now,
			CreatedAt:  now.Add(-24 * time.Hour),
		},
		{
			ID:          uuid.New().String(),
			SenderID:    alice.ID,
			ReceiverID:  bob.ID,
			Content:     "这封信明天才能打开哦。",
			ThemeID:     "default",
			ScheduledAt: &tomorrow,
			CreatedAt:   now,
		},
	}
	for _, l := range letters {
		if err := store.SaveLetter(ctx, l); err != nil {
			fmt.Printf("Failed to save letter: %v\n", err)
			os.Exit(1)
		}
	}

	moments := []*domain.Moment{
		{
			ID:          uuid.New().String(),
			UserID:      alice.ID,
			Title:       "在一起的第一天",
			Date:        now.AddDate(-1, 0, 0),
			Category:    domain.CategoryAnniversary,
			Icon:        domain.IconFavorite,
			IsRecurring: true,
			IsShared:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:        uuid.New().String(),
			UserID:    bob.ID,
			Title:     "第一次旅行",
			Date:      now.AddDate(0, -3, 0),
			Category:  domain.CategoryTravel,
			Icon:      domain.IconFlight,
			IsShared:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	for _, m := range moments {
		if err := store.SaveMoment(ctx, m); err != nil {
			fmt.Printf("Failed to save moment: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("✓ Demo couple seeded successfully!")
	fmt.Printf("  %s / %s\n", alice.Email, password)
	fmt.Printf("  %s / %s\n", bob.Email, password)
	fmt.Printf("  letters: %d, moments: %d\n", len(letters), len(moments))
}

func newDemoUser(email, nickname, passwordHash string, codeTTL time.Duration, now time.Time) *domain.User {
	code, err := auth.GenerateInviteCode()
	if err != nil {
		fmt.Printf("Failed to generate invite code: %v\n", err)
		os.Exit(1)
	}
	return &domain.User{
		ID:                  uuid.New().String(),
		Email:               email,
		Nickname:            nickname,
		PasswordHash:        passwordHash,
		InviteCode:          code,
		InviteCodeExpiresAt: now.Add(codeTTL),
		ReminderTime:        "21:00",
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
