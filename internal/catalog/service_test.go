package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fentz26/shelfcam/internal/audit"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s, audit.NewRecorder(s), nil), s
}

func validInput() ProductInput {
	return ProductInput{Name: "Soap", Price: "R$ 9,99", Description: "Lavender", User: "ana"}
}

func TestRegisterProductValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProductInput)
		pending bool
		wantErr error
	}{
		{"complete", func(*ProductInput) {}, true, nil},
		{"no image", func(*ProductInput) {}, false, ErrNoPendingImage},
		{"no name", func(in *ProductInput) { in.Name = "" }, true, ErrMissingFields},
		{"blank price", func(in *ProductInput) { in.Price = "   " }, true, ErrMissingFields},
		{"no description", func(in *ProductInput) { in.Description = "" }, true, ErrMissingFields},
		{"no user", func(in *ProductInput) { in.User = "" }, true, ErrMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			if tt.pending {
				if err := svc.AcceptArtifact(ctx, models.Artifact{Locator: "file:///a.jpg", Kind: models.ArtifactPhoto}); err != nil {
					t.Fatalf("AcceptArtifact failed: %v", err)
				}
			}

			in := validInput()
			tt.mutate(&in)
			p, err := svc.RegisterProduct(ctx, in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RegisterProduct error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if pending, _ := svc.PendingImage(); tt.pending && pending == nil {
					t.Error("A rejected registration must keep the pending image")
				}
				return
			}
			if p.ImageURI != "file:///a.jpg" {
				t.Errorf("Expected pending image on product, got %s", p.ImageURI)
			}
			if pending, _ := svc.PendingImage(); pending != nil {
				t.Errorf("Expected pending image cleared, got %+v", pending)
			}
		})
	}
}

func TestMissingNamesFields(t *testing.T) {
	_, err := (&Service{}).RegisterProduct(context.Background(), ProductInput{Name: "Soap"})
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("Expected ErrMissingFields, got %v", err)
	}
	want := "missing required fields: price, description, user"
	if err.Error() != want {
		t.Errorf("Error = %q, want %q", err.Error(), want)
	}
}

func TestAcceptArtifactReplacesPending(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	if err := svc.AcceptArtifact(ctx, models.Artifact{}); !errors.Is(err, ErrEmptyLocator) {
		t.Errorf("Expected ErrEmptyLocator, got %v", err)
	}

	svc.AcceptArtifact(ctx, models.Artifact{Locator: "file:///a.jpg", Kind: models.ArtifactPhoto, SessionID: "s1"})
	svc.AcceptArtifact(ctx, models.Artifact{Locator: "file:///b.mp4", Kind: models.ArtifactVideo, SessionID: "s2"})

	pending, err := svc.PendingImage()
	if err != nil {
		t.Fatalf("PendingImage failed: %v", err)
	}
	if pending.Locator != "file:///b.mp4" {
		t.Errorf("Expected latest artifact pending, got %s", pending.Locator)
	}

	// Abandon leaves the slot alone.
	svc.Abandon(ctx)
	if pending, _ := svc.PendingImage(); pending == nil {
		t.Error("Abandon must not clear the pending image")
	}

	if err := svc.ClearPending(ctx); err != nil {
		t.Fatalf("ClearPending failed: %v", err)
	}
	if pending, _ := svc.PendingImage(); pending != nil {
		t.Errorf("Expected empty slot, got %+v", pending)
	}

	recs, err := s.ListDecisions("s2", 0)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Action != "pending.set" {
		t.Errorf("Unexpected decisions %+v", recs)
	}
}

func TestGetAndListProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetProduct("missing"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	svc.AcceptArtifact(ctx, models.Artifact{Locator: "file:///a.jpg", Kind: models.ArtifactGallery})
	p, err := svc.RegisterProduct(ctx, validInput())
	if err != nil {
		t.Fatalf("RegisterProduct failed: %v", err)
	}

	got, err := svc.GetProduct(p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Name != "Soap" {
		t.Errorf("Expected Soap, got %s", got.Name)
	}

	products, err := svc.ListProducts(0)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("Expected 1 product, got %d", len(products))
	}
}
