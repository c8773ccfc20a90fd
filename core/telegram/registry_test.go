package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/telegram/commands"
)

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start", Aliases: []string{"begin"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "Debug", Hidden: true})
	reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "bad"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"})

	list := reg.ListCommands(true)
	if len(list) != 1 || list[0].Text != "/start" || list[0].Description != "Start" {
		t.Fatalf("unexpected visible commands %+v", list)
	}
	if len(reg.ListCommands(false)) != 2 {
		t.Fatalf("hidden command not registered")
	}
	if key, _, ok := reg.LookupCommand("begin"); !ok || key != "/start" {
		t.Fatalf("alias lookup failed: %q %v", key, ok)
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	if err := reg.RegisterCallback("", noop); err == nil {
		t.Fatal("empty key accepted")
	}
	if n := reg.RegisterCallbacks([]string{"back", "skip", "other", "other"}, noop); n != 3 {
		t.Fatalf("bound %d callbacks", n)
	}
	if err := reg.RegisterCallback("back", noop); err == nil {
		t.Fatal("duplicate key accepted")
	}
	got := reg.ListCallbacks()
	if len(got) != 3 || got[0] != "back" || got[1] != "other" || got[2] != "skip" {
		t.Fatalf("unexpected callbacks %v", got)
	}
	if _, ok := reg.GetCallback("missing"); ok {
		t.Fatal("missing key resolved")
	}
}
