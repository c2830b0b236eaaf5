// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/extlaunch/extlaunch/pkg/script"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]script.Script
}

func (r *recorder) Persist(s []script.Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestCreate(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	reg := New(rec)

	s, err := reg.Create("echo")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if s.ID == "" || s.Name != "echo" || s.Insertion != script.InsertNone {
		t.Errorf("Create() = %+v, want defaults", s)
	}
	if rec.count() != 1 || len(rec.calls[0]) != 1 {
		t.Errorf("persister calls = %v, want one call with one script", rec.calls)
	}
}

func TestCreate_Rejects(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	reg := New(rec)
	if _, err := reg.Create("edit"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    script.Name
		wantErr error
	}{
		{"", ErrEmptyName},
		{"   ", ErrEmptyName},
		{"edit", ErrDuplicateName},
	}

	for _, tt := range tests {
		_, err := reg.Create(tt.name)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Create(%q) error = %v, want %v", tt.name, err, tt.wantErr)
		}
		if !errors.Is(err, ErrRegistry) {
			t.Errorf("Create(%q) error should match ErrRegistry", tt.name)
		}
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if rec.count() != 1 {
		t.Errorf("failed creates notified the persister: %d calls", rec.count())
	}
}

func TestUpdate_PreservesOrder(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	a, _ := reg.Create("a")
	b, _ := reg.Create("b")
	c, _ := reg.Create("c")

	b.ExternalProgram = "/bin/echo"
	b.Insertion = script.InsertEnd
	if err := reg.Update(b.ID, b); err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}

	got := reg.List()
	ids := []script.ID{got[0].ID, got[1].ID, got[2].ID}
	want := []script.ID{a.ID, b.ID, c.ID}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("List() order = %v, want %v", ids, want)
		}
	}
	if got[1].ExternalProgram != "/bin/echo" || got[1].Insertion != script.InsertEnd {
		t.Errorf("updated entry = %+v", got[1])
	}
}

func TestUpdate_KeepsID(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	a, _ := reg.Create("a")
	changed := a
	changed.ID = "other"
	if err := reg.Update(a.ID, changed); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get(a.ID); !ok {
		t.Error("Update() changed the stored id")
	}
}

func TestUpdate_AllowsDuplicateName(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	_, _ = reg.Create("a")
	b, _ := reg.Create("b")
	b.Name = "a"
	if err := reg.Update(b.ID, b); err != nil {
		t.Errorf("Update() error = %v, want nil", err)
	}
}

func TestUpdateRemove_NotFound(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	reg := New(rec)

	if err := reg.Update("missing", script.New("x")); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("Update() error = %v, want ErrScriptNotFound", err)
	}
	err := reg.Remove("missing")
	var nf *ScriptNotFoundError
	if !errors.As(err, &nf) || nf.ID != "missing" {
		t.Errorf("Remove() error = %v, want ScriptNotFoundError", err)
	}
	if rec.count() != 0 {
		t.Errorf("persister called %d times, want 0", rec.count())
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	reg := New(rec)
	a, _ := reg.Create("a")
	b, _ := reg.Create("b")

	if err := reg.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get(a.ID); ok {
		t.Error("Get() found removed script")
	}
	list := reg.List()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("List() = %v", list)
	}
	if last := rec.calls[rec.count()-1]; len(last) != 1 {
		t.Errorf("last persisted snapshot has %d entries, want 1", len(last))
	}
}

func TestReturnedScriptsAreCopies(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	a, _ := reg.Create("a")
	a.Arguments = append(a.Arguments, script.Literal("x"))
	_ = reg.Update(a.ID, a)

	got, _ := reg.Get(a.ID)
	got.Arguments[0].Text = "mutated"
	list := reg.List()
	list[0].Name = "mutated"

	again, _ := reg.Get(a.ID)
	if again.Arguments[0].Text != "x" || again.Name != "a" {
		t.Errorf("registry state mutated through a returned copy: %+v", again)
	}
}

func TestFindByName(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	a, _ := reg.Create("open")
	got, err := reg.FindByName("open")
	if err != nil || got.ID != a.ID {
		t.Errorf("FindByName() = %+v, %v", got, err)
	}
	if _, err := reg.FindByName("close"); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("FindByName(close) error = %v", err)
	}
}

func TestLoad_DoesNotNotify(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	reg := New(rec)
	reg.Load([]script.Script{script.New("a"), script.New("b")})
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if rec.count() != 0 {
		t.Errorf("Load() notified the persister")
	}
	if _, err := reg.Create("a"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Create() after Load error = %v, want ErrDuplicateName", err)
	}
}

func TestConcurrentCreate(t *testing.T) {
	t.Parallel()

	reg := New(nil)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Create(script.Name(string(rune('a' + i))))
		}()
	}
	wg.Wait()
	if reg.Len() != 20 {
		t.Errorf("Len() = %d, want 20", reg.Len())
	}
}
