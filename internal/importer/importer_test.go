package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
	err   error
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p.ID == "" {
		p.ID = "generated"
	}
	s.items = append(s.items, p)
	return &p, nil
}

const header = "id,name,description,price,originalPrice,category,brand,stock,featured,tags,images\n"

func TestCSVImporter_Run(t *testing.T) {
	csvData := header +
		`00000000-0000-0000-0000-000000000001,Desk Lamp,LED lamp,30.00,40.00,Home,Lumo,12,true,Lighting;desk,https://example.com/a.jpg;https://example.com/b.jpg
,"Trail Shoes, blue",Grippy sole,59.5,,sports,,4,,,
,,,,,,,,,,
`
	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, repo.items, 2)

	lamp := repo.items[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", lamp.ID)
	assert.Equal(t, domain.CategoryHome, lamp.Category)
	assert.Equal(t, "30", lamp.Price.String())
	assert.Equal(t, 25, lamp.Discount)
	assert.Equal(t, 12, lamp.Stock)
	assert.True(t, lamp.IsFeatured)
	assert.True(t, lamp.IsActive)
	assert.Equal(t, []string{"lighting", "desk"}, lamp.Tags)
	require.Len(t, lamp.Images, 2)
	assert.Equal(t, "https://example.com/b.jpg", lamp.Images[1].URL)

	shoes := repo.items[1]
	assert.Empty(t, shoes.ID)
	assert.Equal(t, "Trail Shoes, blue", shoes.Name)
	assert.True(t, shoes.OriginalPrice.IsZero())
	assert.False(t, shoes.IsFeatured)
	assert.Empty(t, shoes.Images)
}

func TestCSVImporter_RejectsInvalidRows(t *testing.T) {
	cases := map[string]string{
		"bad id":       "nope,Lamp,Desc,1,,home,,1,,,",
		"bad price":    ",Lamp,Desc,cheap,,home,,1,,,",
		"bad stock":    ",Lamp,Desc,1,,home,,many,,,",
		"bad featured": ",Lamp,Desc,1,,home,,1,sometimes,,",
		"bad category": ",Lamp,Desc,1,,garden,,1,,,",
		"missing name": ",,Desc,1,,home,,1,,,",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubProductRepo{}
			valid := ",Ok,Fine,1,,home,,1,,,\n"
			count, err := NewCSVImporter(strings.NewReader(header+valid+row+"\n"), repo, nil).Run(context.Background())
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), "line 3")
			assert.Equal(t, 1, count)
		})
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	_, err := NewCSVImporter(strings.NewReader("id,name,price\n,a,1\n"), &stubProductRepo{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCSVImporter_RepositoryError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewCSVImporter(strings.NewReader(header+",Lamp,Desc,1,,home,,1,,,\n"), &stubProductRepo{err: boom}, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
