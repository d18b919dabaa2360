package e2e

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	"filegov/internal/seeder"
)

// RegisterSteps registers all step definitions
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	sc.Step(`^the demo organisation is loaded$`, tc.demoOrganisationIsLoaded)

	// Requests
	sc.Step(`^"([^"]*)" requests DELETE of "([^"]*)" with reason "([^"]*)"$`, tc.requestDelete)
	sc.Step(`^"([^"]*)" requests TRANSFER of "([^"]*)" to "([^"]*)" with reason "([^"]*)"$`, tc.requestTransfer)
	sc.Step(`^"([^"]*)" approves the request$`, tc.approve)
	sc.Step(`^"([^"]*)" denies the request with comment "([^"]*)"$`, tc.deny)
	sc.Step(`^"([^"]*)" denies the request without a comment$`, tc.denyWithoutComment)
	sc.Step(`^"([^"]*)" views the request$`, tc.viewRequest)

	// Files and trash
	sc.Step(`^"([^"]*)" restores the trashed file "([^"]*)"$`, tc.restoreTrashed)
	sc.Step(`^"([^"]*)" purges the trashed file "([^"]*)"$`, tc.purgeTrashed)
	sc.Step(`^"([^"]*)" restores the same trash record again$`, tc.restoreAgain)
	sc.Step(`^file "([^"]*)" should be live$`, tc.fileShouldBeLive)
	sc.Step(`^file "([^"]*)" should not be live$`, tc.fileShouldNotBeLive)
	sc.Step(`^file "([^"]*)" should be owned by "([^"]*)"$`, tc.fileShouldBeOwnedBy)
	sc.Step(`^the trash should contain file "([^"]*)"$`, tc.trashShouldContain)
	sc.Step(`^the trash should not contain file "([^"]*)"$`, tc.trashShouldNotContain)

	// Notifications
	sc.Step(`^"([^"]*)" should have a "([^"]*)" notification$`, tc.shouldHaveNotification)
	sc.Step(`^"([^"]*)" should have (\d+) unread notifications?$`, tc.shouldHaveUnread)

	// Assertions
	sc.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	sc.Step(`^the error should be "([^"]*)"$`, tc.errorShouldBe)
}

func (tc *TestContext) demoOrganisationIsLoaded(ctx context.Context) error {
	if err := tc.Do(ctx, http.MethodGet, "/files/"+seeder.FileID("q1-ledger.xlsx").String(), "admin", nil); err != nil {
		return err
	}
	if tc.Status() != http.StatusOK {
		return fmt.Errorf("demo data missing: GET seeded file returned %d", tc.Status())
	}
	return nil
}

func (tc *TestContext) createRequest(ctx context.Context, sender string, body map[string]any) error {
	if err := tc.Do(ctx, http.MethodPost, "/requests", sender, body); err != nil {
		return err
	}
	if tc.Status() == http.StatusCreated {
		v, err := tc.Field("id")
		if err != nil {
			return err
		}
		tc.LastRequestID, _ = v.(string)
	}
	return nil
}

func (tc *TestContext) requestDelete(ctx context.Context, sender, file, reason string) error {
	return tc.createRequest(ctx, sender, map[string]any{
		"kind":     "DELETE",
		"file_ids": []string{seeder.FileID(file).String()},
		"reason":   reason,
	})
}

func (tc *TestContext) requestTransfer(ctx context.Context, sender, file, recipient, reason string) error {
	return tc.createRequest(ctx, sender, map[string]any{
		"kind":      "TRANSFER",
		"file_ids":  []string{seeder.FileID(file).String()},
		"recipient": recipient,
		"reason":    reason,
	})
}

func (tc *TestContext) requireLastRequest() error {
	if tc.LastRequestID == "" {
		return fmt.Errorf("no request has been created in this scenario")
	}
	return nil
}

func (tc *TestContext) approve(ctx context.Context, approver string) error {
	if err := tc.requireLastRequest(); err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodPost, "/requests/"+tc.LastRequestID+"/approve", approver, nil)
}

func (tc *TestContext) deny(ctx context.Context, approver, comment string) error {
	if err := tc.requireLastRequest(); err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodPost, "/requests/"+tc.LastRequestID+"/deny", approver, map[string]any{"comment": comment})
}

func (tc *TestContext) denyWithoutComment(ctx context.Context, approver string) error {
	if err := tc.requireLastRequest(); err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodPost, "/requests/"+tc.LastRequestID+"/deny", approver, map[string]any{})
}

func (tc *TestContext) viewRequest(ctx context.Context, viewer string) error {
	if err := tc.requireLastRequest(); err != nil {
		return err
	}
	return tc.Do(ctx, http.MethodGet, "/requests/"+tc.LastRequestID, viewer, nil)
}

type trashRecord struct {
	ID             string `json:"id"`
	OriginalFileID string `json:"original_file_id"`
}

// trashRecordFor finds the record for a seeded file name through the admin's trash view.
func (tc *TestContext) trashRecordFor(ctx context.Context, file string) (*trashRecord, error) {
	if err := tc.Do(ctx, http.MethodGet, "/trash", "admin", nil); err != nil {
		return nil, err
	}
	if tc.Status() != http.StatusOK {
		return nil, fmt.Errorf("list trash returned %d: %s", tc.Status(), tc.LastResponseBody)
	}
	var list struct {
		Records []trashRecord `json:"records"`
	}
	if err := tc.Decode(&list); err != nil {
		return nil, err
	}
	want := seeder.FileID(file).String()
	for i := range list.Records {
		if list.Records[i].OriginalFileID == want {
			return &list.Records[i], nil
		}
	}
	return nil, nil
}

func (tc *TestContext) restoreTrashed(ctx context.Context, actor, file string) error {
	rec, err := tc.trashRecordFor(ctx, file)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s is not in the trash", file)
	}
	tc.LastRequestID = rec.ID
	return tc.Do(ctx, http.MethodPost, "/trash/"+rec.ID+"/restore", actor, nil)
}

func (tc *TestContext) purgeTrashed(ctx context.Context, actor, file string) error {
	rec, err := tc.trashRecordFor(ctx, file)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%s is not in the trash", file)
	}
	tc.LastRequestID = rec.ID
	return tc.Do(ctx, http.MethodDelete, "/trash/"+rec.ID, actor, nil)
}

// restoreAgain reuses the trash id remembered by the last restore or purge step.
func (tc *TestContext) restoreAgain(ctx context.Context, actor string) error {
	if tc.LastRequestID == "" {
		return fmt.Errorf("no trash record touched in this scenario")
	}
	return tc.Do(ctx, http.MethodPost, "/trash/"+tc.LastRequestID+"/restore", actor, nil)
}

func (tc *TestContext) getFile(ctx context.Context, file string) error {
	return tc.Do(ctx, http.MethodGet, "/files/"+seeder.FileID(file).String(), "admin", nil)
}

func (tc *TestContext) fileShouldBeLive(ctx context.Context, file string) error {
	if err := tc.getFile(ctx, file); err != nil {
		return err
	}
	if tc.Status() != http.StatusOK {
		return fmt.Errorf("expected %s to be live, GET returned %d", file, tc.Status())
	}
	return nil
}

func (tc *TestContext) fileShouldNotBeLive(ctx context.Context, file string) error {
	if err := tc.getFile(ctx, file); err != nil {
		return err
	}
	if tc.Status() != http.StatusNotFound {
		return fmt.Errorf("expected %s to be gone, GET returned %d", file, tc.Status())
	}
	return nil
}

func (tc *TestContext) fileShouldBeOwnedBy(ctx context.Context, file, owner string) error {
	if err := tc.fileShouldBeLive(ctx, file); err != nil {
		return err
	}
	got, err := tc.Field("owner_id")
	if err != nil {
		return err
	}
	if want := seeder.ActorID(owner).String(); got != want {
		return fmt.Errorf("expected %s to be owned by %s (%s), got %v", file, owner, want, got)
	}
	return nil
}

func (tc *TestContext) trashShouldContain(ctx context.Context, file string) error {
	rec, err := tc.trashRecordFor(ctx, file)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("expected %s in the trash", file)
	}
	return nil
}

func (tc *TestContext) trashShouldNotContain(ctx context.Context, file string) error {
	rec, err := tc.trashRecordFor(ctx, file)
	if err != nil {
		return err
	}
	if rec != nil {
		return fmt.Errorf("expected %s not to be in the trash", file)
	}
	return nil
}

func (tc *TestContext) shouldHaveNotification(ctx context.Context, actor, category string) error {
	if err := tc.Do(ctx, http.MethodGet, "/notifications", actor, nil); err != nil {
		return err
	}
	var list struct {
		Notifications []struct {
			Category string `json:"category"`
		} `json:"notifications"`
	}
	if err := tc.Decode(&list); err != nil {
		return err
	}
	for _, n := range list.Notifications {
		if n.Category == category {
			return nil
		}
	}
	return fmt.Errorf("%s has no %s notification: %s", actor, category, tc.LastResponseBody)
}

func (tc *TestContext) shouldHaveUnread(ctx context.Context, actor string, want int) error {
	if err := tc.Do(ctx, http.MethodGet, "/notifications/unread-count", actor, nil); err != nil {
		return err
	}
	var body struct {
		Unread int `json:"unread"`
	}
	if err := tc.Decode(&body); err != nil {
		return err
	}
	if body.Unread != want {
		return fmt.Errorf("expected %s to have %d unread notifications, got %d", actor, want, body.Unread)
	}
	return nil
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, want int) error {
	if got := tc.Status(); got != want {
		return fmt.Errorf("expected status %d but got %d: %s", want, got, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, want string) error {
	got, err := tc.Field(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s to equal %q, got %v", field, want, got)
	}
	return nil
}

func (tc *TestContext) errorShouldBe(ctx context.Context, code string) error {
	return tc.responseFieldShouldEqual(ctx, "error", code)
}
