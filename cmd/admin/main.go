package main

import (
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/localization"
	"campusmatch/backend/internal/storage"
	"campusmatch/backend/internal/storage/backend"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const usage = `Usage: admin <command> [args]

Commands:
  queue-status                 show both waiting queues
  cancel <user_id>             remove a user from both waiting queues
  close-room <room_id> <by>    deactivate a room
  rooms <user_id>              list a user's active rooms`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StorageBackend == config.BackendMemory {
		logrus.Fatal("admin needs a shared backend; STORAGE_BACKEND=memory has no state to inspect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, closeStorage, err := backend.Open(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to connect storage: %v", err)
	}
	defer closeStorage()

	loc, err := localization.Default()
	if err != nil {
		logrus.Fatalf("failed to load localization: %v", err)
	}

	if err := run(ctx, s, loc, cfg.Language, os.Args[1:]); err != nil {
		fmt.Println(err)
		closeStorage()
		os.Exit(1)
	}
}

func run(ctx context.Context, s storage.Storage, loc *localization.Localizer, lang string, args []string) error {
	switch args[0] {
	case "queue-status":
		return queueStatus(ctx, s)
	case "cancel":
		if len(args) != 2 {
			return fmt.Errorf("Usage: admin cancel <user_id>")
		}
		return cancelUser(ctx, s, args[1])
	case "close-room":
		if len(args) != 3 {
			return fmt.Errorf("Usage: admin close-room <room_id> <by>")
		}
		rooms := chathub.NewManagerService(s, loc)
		rooms.Lang = lang
		if err := rooms.CloseRoom(ctx, args[1], args[2]); err != nil {
			return fmt.Errorf("Error closing room: %w", err)
		}
		fmt.Printf("Room %s has been closed.\n", args[1])
		return nil
	case "rooms":
		if len(args) != 2 {
			return fmt.Errorf("Usage: admin rooms <user_id>")
		}
		return listRooms(ctx, chathub.NewManagerService(s, loc), args[1])
	default:
		return fmt.Errorf("Unknown command %q\n\n%s", args[0], usage)
	}
}

func queueStatus(ctx context.Context, s storage.Storage) error {
	waiting, err := s.LoadWaiting(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pairwise queue: %d waiting\n", len(waiting))
	for _, e := range waiting {
		fmt.Printf("  %s  %-6s  %s  since %s\n", e.UserID, e.Gender, e.Nickname, e.JoinedAt.Format(time.RFC3339))
	}

	queues, err := s.LoadGroupQueues(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Group queue: %d male, %d female, %d groups formed\n", len(queues.Male), len(queues.Female), len(queues.Groups))
	for _, e := range append(queues.Male, queues.Female...) {
		fmt.Printf("  %s  %-6s  %s  since %s\n", e.UserID, e.Gender, e.Nickname, e.JoinTime.Format(time.RFC3339))
	}
	return nil
}

func cancelUser(ctx context.Context, s storage.Storage, userID string) error {
	pair, err := chathub.NewMatcherService(s).CancelMatching(ctx, userID)
	if err != nil {
		return err
	}
	group, err := chathub.NewGroupMatcherService(s, nil).CancelGroupMatching(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("User %s: removed from pairwise queue=%t, group queue=%t\n", userID, pair, group)
	return nil
}

func listRooms(ctx context.Context, rooms *chathub.ManagerService, userID string) error {
	list, err := rooms.ListRoomsFor(ctx, userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("User %s has no active rooms.\n", userID)
		return nil
	}
	for _, r := range list {
		fmt.Printf("%s  %-6s  %-20s  unread=%d  created=%s\n", r.RoomID, r.Kind, r.Name, r.UnreadCount, r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
