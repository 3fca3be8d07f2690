package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/model"
)

func primaries(pics []model.Picture) []int64 {
	var out []int64
	for _, p := range pics {
		if p.IsPrimary {
			out = append(out, p.ID)
		}
	}
	return out
}

func pics(n int) []NewPicture {
	out := make([]NewPicture, n)
	for i := range out {
		out[i] = NewPicture{Data: []byte{byte(i)}, MIME: "image/jpeg"}
	}
	return out
}

func TestFirstPictureIsPrimary(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, err := CreateMaterial(ctx, database, desk("d"), pics(3), tester)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	if len(m.Pictures) != 3 {
		t.Fatalf("expected 3 pictures, got %d", len(m.Pictures))
	}
	if p := primaries(m.Pictures); len(p) != 1 || p[0] != m.Pictures[0].ID {
		t.Errorf("expected first picture primary, got %v", p)
	}

	// Later uploads do not steal the primary flag.
	added, err := AddPictures(ctx, database, m.ID, pics(1), tester)
	if err != nil {
		t.Fatalf("AddPictures: %v", err)
	}
	if p := primaries(added); len(p) != 1 || p[0] != m.Pictures[0].ID {
		t.Errorf("primary changed after add: %v", p)
	}
}

func TestSetPrimaryPictureLeavesExactlyOne(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, desk("d"), pics(3), tester)
	target := m.Pictures[2].ID

	if err := SetPrimaryPicture(ctx, database, m.ID, target, tester); err != nil {
		t.Fatalf("SetPrimaryPicture: %v", err)
	}
	list, _ := ListPictures(ctx, database, m.ID)
	if p := primaries(list); len(p) != 1 || p[0] != target {
		t.Errorf("expected only %d primary, got %v", target, p)
	}

	if err := SetPrimaryPicture(ctx, database, m.ID, 999, tester); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemovePrimaryPromotesOldest(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, desk("d"), pics(3), tester)
	if err := RemovePicture(ctx, database, m.ID, m.Pictures[0].ID, tester); err != nil {
		t.Fatalf("RemovePicture: %v", err)
	}

	list, _ := ListPictures(ctx, database, m.ID)
	if len(list) != 2 {
		t.Fatalf("expected 2 pictures, got %d", len(list))
	}
	if p := primaries(list); len(p) != 1 || p[0] != m.Pictures[1].ID {
		t.Errorf("expected %d promoted, got %v", m.Pictures[1].ID, p)
	}
}

func TestRemovePictureOfOtherMaterial(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _ := CreateMaterial(ctx, database, desk("a"), pics(1), tester)
	b, _ := CreateMaterial(ctx, database, desk("b"), nil, tester)

	if err := RemovePicture(ctx, database, b.ID, a.Pictures[0].ID, tester); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := AddPictures(ctx, database, 999, pics(1), tester); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound adding to missing material, got %v", err)
	}
}

func TestGetPictureData(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	m, _ := CreateMaterial(ctx, database, desk("d"), []NewPicture{{Data: []byte("jpeg"), MIME: "image/jpeg"}}, tester)
	data, mime, err := GetPictureData(ctx, database, m.Pictures[0].ID)
	if err != nil {
		t.Fatalf("GetPictureData: %v", err)
	}
	if string(data) != "jpeg" || mime != "image/jpeg" {
		t.Errorf("got %q %q", data, mime)
	}
}

func TestPictureMetadata(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	upload := NewPicture{Data: []byte("12345"), MIME: "image/jpeg", FileName: "front.jpg", Description: "front view"}
	m, err := CreateMaterial(ctx, database, desk("d"), []NewPicture{upload}, tester)
	if err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	p := m.Pictures[0]
	if p.FileName != "front.jpg" || p.ContentType != "image/jpeg" || p.FileSize != 5 || p.Description != "front view" {
		t.Errorf("metadata = %+v", p)
	}
	if p.MaterialID != m.ID || p.UploadDate.IsZero() {
		t.Errorf("material id %d, upload date %v", p.MaterialID, p.UploadDate)
	}
}
