package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/stylefit/api/internal/domain"
	"github.com/stylefit/api/internal/repositories"
)

type recordingDesignRepo struct {
	designs    map[string]domain.CustomDesign
	inserted   []domain.CustomDesign
	updated    []domain.CustomDesign
	lastFilter repositories.DesignListFilter
	listPage   domain.CursorPage[domain.CustomDesign]
}

func (r *recordingDesignRepo) Insert(_ context.Context, design domain.CustomDesign) error {
	r.inserted = append(r.inserted, design)
	r.designs[design.ID] = design
	return nil
}

func (r *recordingDesignRepo) Update(_ context.Context, design domain.CustomDesign) error {
	if _, ok := r.designs[design.ID]; !ok {
		return stubRepoError{notFound: true}
	}
	r.updated = append(r.updated, design)
	r.designs[design.ID] = design
	return nil
}

func (r *recordingDesignRepo) FindByID(_ context.Context, designID string) (domain.CustomDesign, error) {
	design, ok := r.designs[designID]
	if !ok {
		return domain.CustomDesign{}, stubRepoError{notFound: true}
	}
	return design, nil
}

func (r *recordingDesignRepo) ListByOwner(_ context.Context, _ string, filter repositories.DesignListFilter) (domain.CursorPage[domain.CustomDesign], error) {
	r.lastFilter = filter
	return r.listPage, nil
}

func newDesignFixture(t *testing.T) (*recordingDesignRepo, DesignService) {
	t.Helper()
	repo := &recordingDesignRepo{designs: map[string]domain.CustomDesign{}}
	service, err := NewDesignService(DesignServiceDeps{
		Designs: repo,
		Clock: func() time.Time {
			return time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
		},
		IDGenerator: func() string { return "01DESIGNID" },
	})
	if err != nil {
		t.Fatalf("NewDesignService: %v", err)
	}
	return repo, service
}

func TestDesignServiceCreateDesign(t *testing.T) {
	repo, service := newDesignFixture(t)

	design, err := service.CreateDesign(context.Background(), CreateDesignCommand{
		OwnerID:  "user-1",
		Label:    "  Evening Gown <script>alert(1)</script> ",
		Notes:    "<b>silk</b> lining",
		Category: "Gowns",
		FabricID: "fab_silk",
		Specifications: domain.MeasurementSet{
			domain.RegionBust:  92,
			domain.RegionWaist: 74,
		},
	})
	if err != nil {
		t.Fatalf("CreateDesign: %v", err)
	}

	if design.ID != "dsg_01designid" {
		t.Errorf("design id = %q", design.ID)
	}
	if design.Status != domain.DesignStatusDraft {
		t.Errorf("status = %q, want draft", design.Status)
	}
	if strings.Contains(design.Label, "<") || strings.Contains(design.Label, "alert") {
		t.Errorf("label not sanitised: %q", design.Label)
	}
	if design.Notes != "silk lining" {
		t.Errorf("notes = %q, want markup stripped", design.Notes)
	}
	if design.Category != "gowns" {
		t.Errorf("category = %q, want folded gowns", design.Category)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d designs, want 1", len(repo.inserted))
	}
}

func TestDesignServiceCreateDesignValidation(t *testing.T) {
	_, service := newDesignFixture(t)

	cases := []struct {
		name string
		cmd  CreateDesignCommand
	}{
		{name: "missing owner", cmd: CreateDesignCommand{Label: "Gown"}},
		{name: "missing label", cmd: CreateDesignCommand{OwnerID: "user-1"}},
		{name: "label only markup", cmd: CreateDesignCommand{OwnerID: "user-1", Label: "<script>x</script>"}},
		{name: "long label", cmd: CreateDesignCommand{OwnerID: "user-1", Label: strings.Repeat("a", 200)}},
		{name: "unknown region", cmd: CreateDesignCommand{
			OwnerID:        "user-1",
			Label:          "Gown",
			Specifications: domain.MeasurementSet{"inseam": 80},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.CreateDesign(context.Background(), tc.cmd); !errors.Is(err, ErrDesignInvalidInput) {
				t.Errorf("error = %v, want ErrDesignInvalidInput", err)
			}
		})
	}
}

func TestDesignServiceUpdateDesign(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{
		ID:      "dsg_x",
		OwnerID: "user-1",
		Label:   "Gown",
		Notes:   "original",
		Status:  domain.DesignStatusDraft,
	}

	newNotes := "updated <i>notes</i>"
	design, err := service.UpdateDesign(context.Background(), UpdateDesignCommand{
		OwnerID:        "user-1",
		DesignID:       "dsg_x",
		Notes:          &newNotes,
		Specifications: domain.MeasurementSet{domain.RegionBust: 90},
	})
	if err != nil {
		t.Fatalf("UpdateDesign: %v", err)
	}
	if design.Notes != "updated notes" {
		t.Errorf("notes = %q", design.Notes)
	}
	if design.Label != "Gown" {
		t.Errorf("nil label must be left unchanged, got %q", design.Label)
	}
	if got, ok := design.DesignSpecifications.Value(domain.RegionBust); !ok || got != 90 {
		t.Errorf("specifications not replaced: %+v", design.DesignSpecifications)
	}
}

func TestDesignServiceUpdateFrozenDesign(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{
		ID:      "dsg_x",
		OwnerID: "user-1",
		Label:   "Gown",
		Status:  domain.DesignStatusSubmitted,
	}

	label := "New"
	_, err := service.UpdateDesign(context.Background(), UpdateDesignCommand{
		OwnerID:  "user-1",
		DesignID: "dsg_x",
		Label:    &label,
	})
	if !errors.Is(err, ErrDesignInvalidState) {
		t.Errorf("error = %v, want ErrDesignInvalidState", err)
	}
}

func TestDesignServiceOwnership(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{ID: "dsg_x", OwnerID: "user-2"}

	if _, err := service.GetDesign(context.Background(), "user-1", "dsg_x"); !errors.Is(err, ErrDesignForbidden) {
		t.Errorf("GetDesign error = %v, want ErrDesignForbidden", err)
	}
	if _, err := service.SubmitDesign(context.Background(), "user-1", "dsg_x"); !errors.Is(err, ErrDesignForbidden) {
		t.Errorf("SubmitDesign error = %v, want ErrDesignForbidden", err)
	}
	if _, err := service.GetDesign(context.Background(), "user-1", "dsg_missing"); !errors.Is(err, ErrDesignNotFound) {
		t.Errorf("missing design error = %v, want ErrDesignNotFound", err)
	}
}

func TestDesignServiceSubmitDesign(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{
		ID:                   "dsg_x",
		OwnerID:              "user-1",
		Label:                "Gown",
		Status:               domain.DesignStatusDraft,
		DesignSpecifications: domain.MeasurementSet{domain.RegionBust: 92},
	}

	design, err := service.SubmitDesign(context.Background(), "user-1", "dsg_x")
	if err != nil {
		t.Fatalf("SubmitDesign: %v", err)
	}
	if design.Status != domain.DesignStatusSubmitted {
		t.Errorf("status = %q, want submitted", design.Status)
	}

	// Submitted designs cannot be submitted again.
	if _, err := service.SubmitDesign(context.Background(), "user-1", "dsg_x"); !errors.Is(err, ErrDesignInvalidState) {
		t.Errorf("resubmit error = %v, want ErrDesignInvalidState", err)
	}
}

func TestDesignServiceSubmitRequiresSpecifications(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{
		ID:      "dsg_x",
		OwnerID: "user-1",
		Label:   "Gown",
		Status:  domain.DesignStatusDraft,
	}

	if _, err := service.SubmitDesign(context.Background(), "user-1", "dsg_x"); !errors.Is(err, ErrDesignInvalidInput) {
		t.Errorf("error = %v, want ErrDesignInvalidInput", err)
	}
}

func TestDesignServiceArchiveDesign(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.designs["dsg_x"] = domain.CustomDesign{
		ID:      "dsg_x",
		OwnerID: "user-1",
		Status:  domain.DesignStatusSubmitted,
	}

	design, err := service.ArchiveDesign(context.Background(), "user-1", "dsg_x")
	if err != nil {
		t.Fatalf("ArchiveDesign: %v", err)
	}
	if design.Status != domain.DesignStatusArchived {
		t.Errorf("status = %q, want archived", design.Status)
	}

	if _, err := service.ArchiveDesign(context.Background(), "user-1", "dsg_x"); !errors.Is(err, ErrDesignInvalidState) {
		t.Errorf("double archive error = %v, want ErrDesignInvalidState", err)
	}
}

func TestDesignServiceListDesigns(t *testing.T) {
	repo, service := newDesignFixture(t)
	repo.listPage = domain.CursorPage[domain.CustomDesign]{
		Items: []domain.CustomDesign{{ID: "dsg_a"}},
	}

	page, err := service.ListDesigns(context.Background(), "user-1", DesignListQuery{
		Status:     domain.DesignStatusDraft,
		Pagination: domain.Pagination{PageSize: 10},
	})
	if err != nil {
		t.Fatalf("ListDesigns: %v", err)
	}
	if len(page.Items) != 1 {
		t.Errorf("items = %d, want 1", len(page.Items))
	}
	if repo.lastFilter.Status != domain.DesignStatusDraft {
		t.Errorf("filter status = %q", repo.lastFilter.Status)
	}

	if _, err := service.ListDesigns(context.Background(), "user-1", DesignListQuery{Status: "bogus"}); !errors.Is(err, ErrDesignInvalidInput) {
		t.Errorf("bogus status error = %v, want ErrDesignInvalidInput", err)
	}
}
