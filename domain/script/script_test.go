package script

import (
	"strings"
	"testing"
)

func TestStep_Validate(t *testing.T) {
	loc := &Locator{By: "id", Value: "user"}

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"navigate", Step{Action: ActionNavigate, URL: "http://example.com"}, ""},
		{"navigate without url", Step{Action: ActionNavigate}, "url is required"},
		{"click", Step{Action: ActionClick, Locator: loc}, ""},
		{"click without locator", Step{Action: ActionClick}, "locator is required"},
		{"click with empty by", Step{Action: ActionClick, Locator: &Locator{Value: "x"}}, "by and value"},
		{"set", Step{Action: ActionSet, Locator: loc, Text: "bob"}, ""},
		{"set without text", Step{Action: ActionSet, Locator: loc}, "text is required"},
		{"set_and_enter", Step{Action: ActionSetAndEnter, Locator: loc, Text: "q"}, ""},
		{"wait zero", Step{Action: ActionWait}, ""},
		{"wait negative", Step{Action: ActionWait, Seconds: -1}, "negative"},
		{"set_timeout", Step{Action: ActionSetTimeout, Seconds: 5}, ""},
		{"set_timeout zero", Step{Action: ActionSetTimeout}, "positive"},
		{"screenshot", Step{Action: ActionScreenshot, Name: "home"}, ""},
		{"screenshot without name", Step{Action: ActionScreenshot}, "name is required"},
		{"screenshot with path", Step{Action: ActionScreenshot, Name: "../home"}, "path separators"},
		{"fetch_text", Step{Action: ActionFetchText, Locator: loc, Expect: "Hi"}, ""},
		{"assert_exists", Step{Action: ActionAssertExists, Locator: loc, Absent: true}, ""},
		{"stop", Step{Action: ActionStop, Message: "PASSED"}, ""},
		{"unknown", Step{Action: "hover"}, "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestScript_Validate(t *testing.T) {
	valid := &Script{
		Name:  "login",
		Steps: []Step{{Action: ActionNavigate, URL: "http://example.com"}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	invalid := &Script{
		Timeout: -1,
		Steps: []Step{
			{Action: ActionNavigate},
			{Action: ActionClick},
		},
	}
	err := invalid.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"name is required", "timeout cannot be negative", "step 1 (navigate)", "step 2 (click)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want containing %q", err, want)
		}
	}

	if err := (&Script{Name: "empty"}).Validate(); err == nil {
		t.Error("Validate() should reject a script without steps")
	}
}

func TestActionType_NeedsLocator(t *testing.T) {
	needs := map[ActionType]bool{
		ActionClick:        true,
		ActionSet:          true,
		ActionSetAndEnter:  true,
		ActionFetchText:    true,
		ActionAssertExists: true,
	}

	for _, a := range ActionTypes() {
		if got := a.NeedsLocator(); got != needs[a] {
			t.Errorf("%s.NeedsLocator() = %v, want %v", a, got, needs[a])
		}
	}
}

func TestStep_Describe(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Step{Action: ActionClick, Locator: &Locator{By: "css", Value: "#go"}}, "click css=#go"},
		{Step{Action: ActionNavigate, URL: "http://x"}, "navigate http://x"},
		{Step{Action: ActionWait, Seconds: 2}, "wait 2"},
		{Step{Action: ActionStop}, "stop"},
	}

	for _, tt := range tests {
		if got := tt.step.Describe(); got != tt.want {
			t.Errorf("Describe() = %v, want %v", got, tt.want)
		}
	}
}

func TestRegistry_Basic(t *testing.T) {
	registry := NewRegistry()

	script1 := &Script{Name: "script1", Description: "Test script 1"}
	script2 := &Script{Name: "script2", Description: "Test script 2"}

	registry.Register(script1)
	registry.RegisterFrom(script2, "scripts/two.yaml")

	t.Run("Get", func(t *testing.T) {
		if got := registry.Get("script1"); got != script1 {
			t.Error("Failed to get script1")
		}
		if got := registry.Get("nonexistent"); got != nil {
			t.Error("Expected nil for nonexistent script")
		}
	})

	t.Run("Origin", func(t *testing.T) {
		if got := registry.Origin("script1"); got != "" {
			t.Errorf("Origin(script1) = %q, want empty", got)
		}
		if got := registry.Origin("script2"); got != "scripts/two.yaml" {
			t.Errorf("Origin(script2) = %q, want scripts/two.yaml", got)
		}
	})

	t.Run("Count", func(t *testing.T) {
		if got := registry.Count(); got != 2 {
			t.Errorf("Count() = %d, want 2", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		names := registry.List()
		if len(names) != 2 || names[0] != "script1" || names[1] != "script2" {
			t.Errorf("List() = %v, want [script1 script2]", names)
		}
	})

	t.Run("Exists", func(t *testing.T) {
		if !registry.Exists("script1") {
			t.Error("Exists(script1) should return true")
		}
		if registry.Exists("nonexistent") {
			t.Error("Exists(nonexistent) should return false")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if !registry.Remove("script2") {
			t.Error("Remove(script2) should return true")
		}
		if registry.Remove("script2") {
			t.Error("second Remove(script2) should return false")
		}
		if registry.Origin("script2") != "" || registry.Count() != 1 {
			t.Error("Remove() left script2 behind")
		}
	})
}

func TestRegistry_AllSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		registry.Register(&Script{Name: name})
	}

	all := registry.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d scripts, want 3", len(all))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if all[i].Name != want {
			t.Errorf("All()[%d] = %s, want %s", i, all[i].Name, want)
		}
	}
}

func TestRegistry_Replace(t *testing.T) {
	registry := NewRegistry()

	builtin := &Script{Name: "smoke", Description: "Original"}
	onDisk := &Script{Name: "smoke", Description: "Updated"}

	registry.RegisterFrom(builtin, "scripts/smoke.yaml")
	registry.RegisterFrom(onDisk, "/work/scripts/smoke.yaml")

	got := registry.Get("smoke")
	if got.Description != "Updated" {
		t.Error("RegisterFrom should replace existing script with same name")
	}
	if registry.Origin("smoke") != "/work/scripts/smoke.yaml" {
		t.Errorf("Origin() = %q, want the replacing file", registry.Origin("smoke"))
	}
	if registry.Count() != 1 {
		t.Error("Count should still be 1 after replacing")
	}
}
