package review

import (
	"testing"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current model.ReviewStatus
		action  model.ReviewAction
		want    model.ReviewStatus
		wantErr bool
	}{
		{name: "approve from needs review", current: model.ReviewStatusNeedsReview, action: model.ReviewActionApprove, want: model.ReviewStatusReviewed},
		{name: "reclassify from needs review", current: model.ReviewStatusNeedsReview, action: model.ReviewActionReclassify, want: model.ReviewStatusReviewed},
		{name: "approve from none", current: model.ReviewStatusNone, action: model.ReviewActionApprove, want: model.ReviewStatusNone, wantErr: true},
		{name: "approve from reviewed", current: model.ReviewStatusReviewed, action: model.ReviewActionApprove, want: model.ReviewStatusReviewed, wantErr: true},
		{name: "reclassify from none", current: model.ReviewStatusNone, action: model.ReviewActionReclassify, want: model.ReviewStatusNone, wantErr: true},
		{name: "route from none", current: model.ReviewStatusNone, action: model.ReviewActionRouteToNeedsReview, want: model.ReviewStatusNeedsReview},
		{name: "route from reviewed", current: model.ReviewStatusReviewed, action: model.ReviewActionRouteToNeedsReview, want: model.ReviewStatusNeedsReview},
		{name: "route from needs review", current: model.ReviewStatusNeedsReview, action: model.ReviewActionRouteToNeedsReview, want: model.ReviewStatusNeedsReview},
		{name: "unknown action", current: model.ReviewStatusNeedsReview, action: "Delete", want: model.ReviewStatusNeedsReview, wantErr: true},
		{name: "unknown status", current: "Pending", action: model.ReviewActionApprove, want: "Pending", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.action)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTransitionNotAllowed)
				assert.Contains(t, err.Error(), "not allowed")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !tt.wantErr, CanTransition(tt.current, tt.action))
		})
	}
}

func TestEscalate(t *testing.T) {
	for _, status := range []model.ReviewStatus{
		model.ReviewStatusNone,
		model.ReviewStatusNeedsReview,
		model.ReviewStatusReviewed,
		"garbage",
	} {
		assert.Equal(t, model.ReviewStatusNeedsReview, Escalate(status), string(status))
	}
}
