package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbeoliero/kit/log"

	"github.com/evermeet/chatsync/internal/config"
	"github.com/evermeet/chatsync/internal/engine"
	"github.com/evermeet/chatsync/internal/store"
	"github.com/evermeet/chatsync/pkg/idgen"
	"github.com/evermeet/chatsync/pkg/session"
)

// chat-client wires the sync engine against a live remote store and prints
// the projected conversation list as it changes. It exists for manual
// verification; the engine itself is a library.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	token := flag.String("token", os.Getenv("CHATSYNC_TOKEN"), "session token")
	flag.Parse()

	ctx := context.TODO()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	claims, err := session.Parse(*token)
	if err != nil {
		log.CtxError(ctx, "failed to parse session token: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "session loaded: user_id=%s", claims.UserId)

	gen, err := idgen.NewSonyflakeGenerator(cfg.Client.MachineId)
	if err != nil {
		log.CtxError(ctx, "failed to init id generator: %v", err)
		panic(err)
	}
	idgen.SetDefaultGenerator(gen)

	st, err := store.NewRemoteStore(cfg, *token)
	if err != nil {
		log.CtxError(ctx, "failed to create remote store: %v", err)
		panic(err)
	}
	defer st.Close()

	eng := engine.New(cfg, st, claims.UserId)
	if err := eng.Start(ctx); err != nil {
		log.CtxError(ctx, "failed to start engine: %v", err)
		panic(err)
	}
	defer eng.Close()

	log.CtxInfo(ctx, "sync engine started: user_id=%s", claims.UserId)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-eng.Updates():
			items := eng.Conversations()
			fmt.Printf("--- %d conversations ---\n", len(items))
			for _, item := range items {
				marker := " "
				if item.IsPinned {
					marker = "*"
				}
				name := "(unknown)"
				if item.Peer != nil {
					name = item.Peer.DisplayName
				}
				preview := ""
				if item.LastMessage != nil {
					preview = item.LastMessage.Content
				}
				fmt.Printf("%s %-20s unread=%-3d %s\n", marker, name, item.UnreadCount, preview)
			}
			for _, n := range eng.Notices() {
				fmt.Printf("! %s\n", n.Text)
				eng.DismissNotice(n.Id)
			}
		case <-quit:
			log.CtxInfo(ctx, "shutting down")
			return
		}
	}
}
