package lod

import (
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/matzehuels/kinview/pkg/family"
)

type commit struct {
	id     family.ID
	bucket int
}

type recorder struct {
	mu      sync.Mutex
	commits []commit
}

func (r *recorder) record(id family.ID, bucket int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, commit{id, bucket})
}

func (r *recorder) all() []commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commits)
}

func TestBucketTarget(t *testing.T) {
	tests := []struct {
		dpr  float64
		size float64
		want int
	}{
		{1, 10, 64},
		{1, 64, 64},
		{1, 65, 128},
		{1, 300, 512},
		{1, 5000, 512},
		{2, 50, 128},
		{3, 100, 512},
	}

	for _, tt := range tests {
		c := NewBucketController(BucketOptions{DevicePixelRatio: tt.dpr})
		if got := c.Target(tt.size); got != tt.want {
			t.Errorf("Target(%v) at dpr %v = %d, want %d", tt.size, tt.dpr, got, tt.want)
		}
	}
}

func TestBucketFirstReportCommits(t *testing.T) {
	var rec recorder
	c := NewBucketController(BucketOptions{OnCommit: rec.record})
	if got := c.Update(1, 200); got != 256 {
		t.Errorf("Update = %d, want 256", got)
	}
	if got := rec.all(); !slices.Equal(got, []commit{{1, 256}}) {
		t.Errorf("commits = %v", got)
	}
}

func TestBucketDowngradeImmediate(t *testing.T) {
	var rec recorder
	c := NewBucketController(BucketOptions{OnCommit: rec.record})
	c.Update(1, 400)
	if got := c.Update(1, 50); got != 64 {
		t.Errorf("Update = %d, want 64", got)
	}
	if b, _ := c.Bucket(1); b != 64 {
		t.Errorf("Bucket = %d, want 64", b)
	}
	if got := rec.all(); !slices.Equal(got, []commit{{1, 512}, {1, 64}}) {
		t.Errorf("commits = %v", got)
	}
}

func TestBucketUpgradeHysteresis(t *testing.T) {
	c := NewBucketController(BucketOptions{})
	defer c.Close()
	c.Update(1, 128)
	// 140 is above the 128 bucket but within 15% of it.
	c.Update(1, 140)
	if _, ok := c.Pending(1); ok {
		t.Error("upgrade scheduled inside hysteresis margin")
	}
	c.Update(1, 150)
	if p, ok := c.Pending(1); !ok || p != 256 {
		t.Errorf("Pending = %d, %v; want 256, true", p, ok)
	}
}

func TestBucketUpgradeDebounced(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		c := NewBucketController(BucketOptions{OnCommit: rec.record})
		defer c.Close()

		c.Update(1, 60)
		if got := c.Update(1, 200); got != 64 {
			t.Fatalf("Update returned %d before debounce, want 64", got)
		}

		time.Sleep(DefaultDebounce - time.Millisecond)
		synctest.Wait()
		if b, _ := c.Bucket(1); b != 64 {
			t.Fatalf("bucket = %d before debounce elapsed, want 64", b)
		}

		time.Sleep(2 * time.Millisecond)
		synctest.Wait()
		if b, _ := c.Bucket(1); b != 256 {
			t.Errorf("bucket = %d after debounce, want 256", b)
		}
		if got := rec.all(); !slices.Equal(got, []commit{{1, 64}, {1, 256}}) {
			t.Errorf("commits = %v", got)
		}
	})
}

func TestBucketBurstCommitsLast(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var rec recorder
		c := NewBucketController(BucketOptions{OnCommit: rec.record})
		defer c.Close()

		c.Update(7, 60)
		for i := range 400 {
			size := 400.0 // 512 bucket
			if i%2 == 1 {
				size = 200 // 256 bucket
			}
			c.Update(7, size)
			time.Sleep(300 * time.Microsecond)
		}

		time.Sleep(DefaultDebounce)
		synctest.Wait()

		want := []commit{{7, 64}, {7, 256}}
		if got := rec.all(); !slices.Equal(got, want) {
			t.Errorf("commits = %v, want %v", got, want)
		}
	})
}

func TestBucketSteadyTargetCommits(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var committedAt time.Duration
		start := time.Now()
		c := NewBucketController(BucketOptions{OnCommit: func(_ family.ID, bucket int) {
			if bucket == 256 {
				committedAt = time.Since(start)
			}
		}})
		defer c.Close()

		c.Update(1, 60)
		// One report per 16ms frame, all asking for the 256 bucket.
		for elapsed := time.Duration(0); elapsed < 480*time.Millisecond; elapsed += 16 * time.Millisecond {
			c.Update(1, 200)
			time.Sleep(16 * time.Millisecond)
			synctest.Wait()
		}

		if b, _ := c.Bucket(1); b != 256 {
			t.Fatalf("bucket = %d after a steady target, want 256", b)
		}
		if committedAt < DefaultDebounce || committedAt > DefaultDebounce+16*time.Millisecond {
			t.Errorf("committed after %v, want about %v", committedAt, DefaultDebounce)
		}
	})
}

func TestBucketCancellation(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(c *BucketController)
		want   int
	}{
		{name: "remove", cancel: func(c *BucketController) { c.Remove(1) }, want: 0},
		{name: "reset", cancel: func(c *BucketController) { c.Reset() }, want: 0},
		{name: "close", cancel: func(c *BucketController) { c.Close() }, want: 64},
		{name: "target returns to current", cancel: func(c *BucketController) { c.Update(1, 60) }, want: 64},
		{name: "shrink below current", cancel: func(c *BucketController) { c.Update(1, 10) }, want: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				var rec recorder
				c := NewBucketController(BucketOptions{OnCommit: rec.record})
				c.Update(1, 60)
				c.Update(1, 300)
				tt.cancel(c)

				time.Sleep(2 * DefaultDebounce)
				synctest.Wait()

				b, _ := c.Bucket(1)
				if b != tt.want {
					t.Errorf("bucket = %d, want %d", b, tt.want)
				}
				for _, cm := range rec.all() {
					if cm.bucket == 512 {
						t.Errorf("cancelled upgrade committed: %v", rec.all())
					}
				}
				c.Close()
			})
		})
	}
}

func TestBucketIndependentNodes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := NewBucketController(BucketOptions{})
		defer c.Close()

		c.Update(1, 60)
		c.Update(2, 60)
		c.Update(1, 300)
		time.Sleep(DefaultDebounce / 2)
		c.Update(2, 300)

		time.Sleep(DefaultDebounce/2 + time.Millisecond)
		synctest.Wait()
		b1, _ := c.Bucket(1)
		b2, _ := c.Bucket(2)
		if b1 != 512 || b2 != 64 {
			t.Errorf("buckets = %d, %d; want 512, 64", b1, b2)
		}
		if c.Len() != 2 {
			t.Errorf("Len = %d, want 2", c.Len())
		}
	})
}
