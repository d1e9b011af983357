package config_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/debatescribe/internal/config"
	"github.com/MrWong99/debatescribe/pkg/provider/llm"
	llmmock "github.com/MrWong99/debatescribe/pkg/provider/llm/mock"
	"github.com/MrWong99/debatescribe/pkg/provider/stt"
	sttmock "github.com/MrWong99/debatescribe/pkg/provider/stt/mock"
)

func TestRegistry_CreateRegistered(t *testing.T) {
	reg := config.NewRegistry()
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("fake", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})
	reg.RegisterSTT("fake", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})

	entry := config.ProviderEntry{Name: "fake", Model: "m1"}
	if _, err := reg.CreateLLM(entry); err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if gotEntry.Model != "m1" {
		t.Errorf("factory received %+v", gotEntry)
	}
	if _, err := reg.CreateSTT(entry); err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if got := reg.Names("llm"); !slices.Equal(got, []string{"fake"}) {
		t.Errorf("Names(llm) = %v", got)
	}
}

func TestRegistry_NotRegistered(t *testing.T) {
	reg := config.NewRegistry()
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err = %v", err)
	}
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v", err)
	}
}
