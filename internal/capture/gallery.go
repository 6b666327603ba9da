package capture

import (
	"context"

	"github.com/google/uuid"

	"github.com/fentz26/shelfcam/internal/logging"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
	"github.com/fentz26/shelfcam/internal/screen"
)

// Picker lets the user choose an existing image from the media library.
type Picker interface {
	// PickImage returns the chosen image, or cancelled=true if the user
	// backed out.
	PickImage(ctx context.Context) (loc models.Locator, cancelled bool, err error)
}

// PickFromGallery runs the one-shot gallery screen: request the gallery
// capability, let the user pick, hand the result to the sink and leave the
// screen. A cancelled pick clears the sink's pending image when the sink
// supports it.
func PickFromGallery(ctx context.Context, gate *permission.Gate, picker Picker, sink screen.ResultSink, nav screen.Navigator, log logging.Logger) error {
	log = logging.OrNop(log)
	defer nav.ExitScreen()

	if st, err := gate.Request(ctx, permission.Gallery); st != permission.Granted {
		sink.Abandon(ctx)
		if err == nil {
			err = screen.Wrap(screen.ErrPermissionDenied, "gallery", nil)
		}
		return err
	}

	loc, cancelled, err := picker.PickImage(ctx)
	if err != nil {
		sink.Abandon(ctx)
		return screen.Wrap(screen.ErrCaptureFailed, "pick image", err)
	}
	if cancelled || loc == "" {
		log.Infof("Gallery pick cancelled")
		if c, ok := sink.(screen.PendingClearer); ok {
			return c.ClearPending(ctx)
		}
		return nil
	}

	return sink.AcceptArtifact(ctx, models.Artifact{
		Locator:   loc,
		Kind:      models.ArtifactGallery,
		SessionID: uuid.New().String(),
	})
}
