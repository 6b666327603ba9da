// Package catalog provides the product registration service. It is the
// result sink the capture screens hand their media to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/screen"
	"github.com/fentz26/shelfcam/internal/store"
)

// ProductInput is the registration form.
type ProductInput struct {
	Name        string
	Price       string
	Description string
	User        string
}

// Missing returns the names of the empty fields.
func (in ProductInput) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"price", in.Price},
		{"description", in.Description},
		{"user", in.User},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Service provides the catalog business logic.
type Service struct {
	store    *store.Store
	recorder screen.Recorder
	log      logging.Logger
}

var (
	_ screen.ResultSink     = (*Service)(nil)
	_ screen.PendingClearer = (*Service)(nil)
)

// NewService creates a new catalog service. recorder may be nil.
func NewService(s *store.Store, recorder screen.Recorder, log logging.Logger) *Service {
	return &Service{
		store:    s,
		recorder: recorder,
		log:      logging.OrNop(log),
	}
}

// --- Result sink ---

// AcceptArtifact makes a's media the pending product image.
func (s *Service) AcceptArtifact(ctx context.Context, a models.Artifact) error {
	if a.Locator == "" {
		return ErrEmptyLocator
	}
	if _, err := s.store.SetPendingImage(a.Locator, a.Kind); err != nil {
		return err
	}
	s.log.Infof("Pending image set from %s session %s", a.Kind, a.SessionID)
	s.record("pending.set", a, "success", a.SessionID, string(a.Locator))
	return nil
}

// Abandon is called when a session ends without a result. The pending
// image is left as it was.
func (s *Service) Abandon(ctx context.Context) {
	s.log.Debugf("Capture abandoned")
}

// ClearPending drops the pending image.
func (s *Service) ClearPending(ctx context.Context) error {
	if err := s.store.ClearPendingImage(); err != nil {
		return err
	}
	s.record("pending.clear", nil, "success", "", "")
	return nil
}

// PendingImage returns the pending image, or nil if none is selected.
func (s *Service) PendingImage() (*models.PendingImage, error) {
	return s.store.PendingImage()
}

// --- Product Operations ---

// RegisterProduct stores a product using the pending image and clears the
// slot. Every field and the image are required.
func (s *Service) RegisterProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in = ProductInput{
		Name:        strings.TrimSpace(in.Name),
		Price:       strings.TrimSpace(in.Price),
		Description: strings.TrimSpace(in.Description),
		User:        strings.TrimSpace(in.User),
	}
	if missing := in.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	p, err := s.store.RegisterProductTx(in.Name, in.Price, in.Description, in.User)
	if errors.Is(err, store.ErrNoPendingImage) {
		return nil, ErrNoPendingImage
	}
	if err != nil {
		return nil, err
	}

	s.log.Infof("Registered product %s (%s)", p.Name, p.ID)
	s.record("product.register", in, "success", "", p.ID)
	return p, nil
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(id string) (*models.Product, error) {
	p, err := s.store.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// ListProducts returns products newest first.
func (s *Service) ListProducts(limit int) ([]models.Product, error) {
	return s.store.ListProducts(limit)
}

func (s *Service) record(action string, inputs interface{}, outcome, sessionID, details string) {
	if s.recorder == nil {
		return
	}
	if _, err := s.recorder.Record(action, inputs, outcome, sessionID, details); err != nil {
		s.log.Warnf("Recording %s: %v", action, err)
	}
}
