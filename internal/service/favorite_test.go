package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestFavoriteToggle_AddsThenRemoves(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := NewFavoriteService(repo, newTestLogger())
	ctx := context.Background()

	repo.On("Toggle", ctx, "u-1", "p-1").Return(true, nil).Once()
	repo.On("Toggle", ctx, "u-1", "p-1").Return(false, nil).Once()

	first, err := svc.Toggle(ctx, "u-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.FavoriteToggle{ProductID: "p-1", Favorited: true}, first)

	second, err := svc.Toggle(ctx, "u-1", "p-1")
	require.NoError(t, err)
	assert.False(t, second.Favorited)
	repo.AssertExpectations(t)
}

func TestFavoriteToggle_InvalidInput(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := NewFavoriteService(repo, newTestLogger())

	_, err := svc.Toggle(context.Background(), "", "p-1")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Toggle(context.Background(), "u-1", "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	repo.AssertNotCalled(t, "Toggle", mock.Anything, mock.Anything, mock.Anything)
}

func TestFavoriteToggle_UnknownProduct(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := NewFavoriteService(repo, newTestLogger())
	ctx := context.Background()
	repo.On("Toggle", ctx, "u-1", "gone").Return(false, apperrors.NotFound("product", "gone"))

	_, err := svc.Toggle(ctx, "u-1", "gone")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFavoriteList(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := NewFavoriteService(repo, newTestLogger())
	ctx := context.Background()
	favs := []domain.Favorite{{UserID: "u-1", ProductID: "p-1", Product: roadster().Summary()}}
	repo.On("ListByUser", ctx, "u-1", 1, 20).Return(favs, 1, nil)

	got, total, err := svc.List(ctx, "u-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Roadster", got[0].Product.Name)

	_, _, err = svc.List(ctx, "", 1, 20)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}
