package mutation

import "testing"

func TestRegisterReaderThenMutationFails(t *testing.T) {
	m := New()
	if err := m.RegisterReader("job1", "file:///a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterMutation("job2", "file:///a"); err != ErrHasReaders {
		t.Errorf("err = %v, want ErrHasReaders", err)
	}
}

func TestRegisterMutationThenReaderFails(t *testing.T) {
	m := New()
	if err := m.RegisterMutation("job1", "file:///a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterReader("job2", "file:///a"); err != ErrHasMutator {
		t.Errorf("err = %v, want ErrHasMutator", err)
	}
}

func TestDoubleMutationFails(t *testing.T) {
	m := New()
	if err := m.RegisterMutation("job1", "file:///a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterMutation("job2", "file:///a"); err != ErrHasMutator {
		t.Errorf("err = %v, want ErrHasMutator", err)
	}
}

func TestReleaseReaderAllowsLaterMutation(t *testing.T) {
	m := New()
	m.RegisterReader("job1", "file:///a")
	m.ReleaseReader("job1", "file:///a")
	if err := m.RegisterMutation("job2", "file:///a"); err != nil {
		t.Errorf("expected mutation to succeed after reader released: %v", err)
	}
}

func TestGenerationBumpsOnMutation(t *testing.T) {
	m := New()
	if g := m.Generation("file:///a"); g != 0 {
		t.Fatalf("initial generation = %d, want 0", g)
	}
	m.RegisterMutation("job1", "file:///a")
	if g := m.Generation("file:///a"); g != 1 {
		t.Errorf("generation after mutation = %d, want 1", g)
	}
	m.ReleaseMutation("job1", "file:///a")
	m.RegisterMutation("job2", "file:///a")
	if g := m.Generation("file:///a"); g != 2 {
		t.Errorf("generation after second mutation = %d, want 2", g)
	}
}

func TestSetGenerationStampsDescriptor(t *testing.T) {
	m := New()
	m.RegisterMutation("job1", "file:///a")
	desc := map[string]any{"class": "File"}
	m.SetGeneration("file:///a", desc)
	if desc["cwlgenerations"] != 1 {
		t.Errorf("cwlgenerations = %v, want 1", desc["cwlgenerations"])
	}
}

func TestConcurrentReadersAllowed(t *testing.T) {
	m := New()
	if err := m.RegisterReader("job1", "file:///a"); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterReader("job2", "file:///a"); err != nil {
		t.Errorf("expected multiple readers to be allowed: %v", err)
	}
}
