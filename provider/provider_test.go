package provider

import (
	"testing"
)

func TestResolveKnownSlug(t *testing.T) {
	d := Resolve("llama-3-3-70b")
	if d.Provider != ProviderGroq {
		t.Errorf("Provider = %q, want %q", d.Provider, ProviderGroq)
	}
	if d.Name != "llama-3.3-70b-versatile" {
		t.Errorf("Name = %q, want llama-3.3-70b-versatile", d.Name)
	}
}

func TestResolveUnknownSlugFallsBack(t *testing.T) {
	for _, slug := range []string{"", "no-such-model", "gpt-imagegen"} {
		d := Resolve(slug)
		if d.Provider != ProviderGoogle || d.Name != "gemini-1.5-flash" {
			t.Errorf("Resolve(%q) = %+v, want default gemini descriptor", slug, d)
		}
	}
}

func TestCatalogHasSingleDefault(t *testing.T) {
	models := Catalog()
	if len(models) == 0 {
		t.Fatal("empty catalog")
	}
	defaults := 0
	for _, m := range models {
		if m.Default {
			defaults++
			if m.ID != "gemini-2-5-flash" {
				t.Errorf("default model = %q, want gemini-2-5-flash", m.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d, want 1", defaults)
	}
}

func TestForDescriptorMissingCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")

	if _, err := ForDescriptor(Descriptor{Provider: ProviderGoogle, Name: "gemini-1.5-flash"}); err == nil {
		t.Error("expected configuration error for missing gemini key")
	}
	if _, err := ForDescriptor(Descriptor{Provider: ProviderGroq, Name: "qwen-qwq-32b"}); err == nil {
		t.Error("expected configuration error for missing groq key")
	}
	if _, err := ForDescriptor(Descriptor{Provider: "mystery", Name: "x"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
