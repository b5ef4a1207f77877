package repository_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

// newStore opens one fresh backend so the contract tests run against both.
func newStore(t *testing.T, backend string, maxBytes int64) repository.Store {
	t.Helper()
	if backend == "memory" {
		s := repository.NewMemStore(repository.WithMaxBytes(maxBytes))
		t.Cleanup(func() { _ = s.Close() })
		return s
	}
	s, err := repository.NewBadgerStore(context.Background(), t.TempDir(),
		repository.WithMaxBytes(maxBytes),
		repository.WithSyncWrites(false),
		repository.WithGCInterval(0),
	)
	if err != nil {
		t.Fatalf("open badger store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	for _, backend := range []string{"badger", "memory"} {
		Convey("Given an empty "+backend+" store", t, func() {
			ctx := context.Background()
			store := newStore(t, backend, 0)

			Convey("When putting and getting a value", func() {
				So(store.Put(ctx, "session:a", []byte(`{"x":1}`)), ShouldBeNil)
				got, err := store.Get(ctx, "session:a")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, `{"x":1}`)

				Convey("Then overwriting replaces the value", func() {
					So(store.Put(ctx, "session:a", []byte(`{"x":2}`)), ShouldBeNil)
					got, err := store.Get(ctx, "session:a")
					So(err, ShouldBeNil)
					So(string(got), ShouldEqual, `{"x":2}`)
				})
			})

			Convey("When getting an absent key", func() {
				_, err := store.Get(ctx, "session:absent")
				So(err, ShouldWrap, repository.ErrNotFound)
			})

			Convey("When deleting", func() {
				So(store.Put(ctx, "queue:a", []byte("v")), ShouldBeNil)
				So(store.Delete(ctx, "queue:a"), ShouldBeNil)
				_, err := store.Get(ctx, "queue:a")
				So(err, ShouldWrap, repository.ErrNotFound)

				Convey("Then deleting again is a no-op", func() {
					So(store.Delete(ctx, "queue:a"), ShouldBeNil)
				})
			})

			Convey("When listing keys by prefix", func() {
				So(store.Put(ctx, "queue:s1", []byte("a")), ShouldBeNil)
				So(store.Put(ctx, "queue:s2", []byte("b")), ShouldBeNil)
				So(store.Put(ctx, "history:s1", []byte("c")), ShouldBeNil)

				keys, err := store.Keys(ctx, "queue:")
				So(err, ShouldBeNil)
				So(keys, ShouldResemble, []string{"queue:s1", "queue:s2"})
			})
		})
	}
}

func TestStoreByteBudget(t *testing.T) {
	for _, backend := range []string{"badger", "memory"} {
		Convey("Given a "+backend+" store with a 64 byte budget", t, func() {
			ctx := context.Background()
			store := newStore(t, backend, 64)

			Convey("When a write fits the budget", func() {
				So(store.Put(ctx, "k", make([]byte, 32)), ShouldBeNil)
				So(store.UsedBytes(ctx), ShouldEqual, 33)
			})

			Convey("When a write would exceed the budget", func() {
				err := store.Put(ctx, "k", make([]byte, 128))
				So(err, ShouldWrap, repository.ErrQuotaExceeded)
				So(repository.Classify(err), ShouldEqual, repository.QuotaExceeded)

				Convey("Then nothing was written", func() {
					_, err := store.Get(ctx, "k")
					So(err, ShouldWrap, repository.ErrNotFound)
					So(store.UsedBytes(ctx), ShouldEqual, 0)
				})
			})

			Convey("When overwriting with a smaller value frees budget", func() {
				So(store.Put(ctx, "k", make([]byte, 60)), ShouldBeNil)
				So(store.Put(ctx, "k", make([]byte, 8)), ShouldBeNil)
				So(store.UsedBytes(ctx), ShouldEqual, 9)

				Convey("Then the freed budget is usable again", func() {
					So(store.Put(ctx, "j", make([]byte, 40)), ShouldBeNil)
				})
			})

			Convey("When deleting frees budget", func() {
				So(store.Put(ctx, "k", make([]byte, 60)), ShouldBeNil)
				So(store.Delete(ctx, "k"), ShouldBeNil)
				So(store.UsedBytes(ctx), ShouldEqual, 0)
			})

			Convey("When the same key is overwritten many times", func() {
				for range 20 {
					So(store.Put(ctx, "k", make([]byte, 32)), ShouldBeNil)
				}

				Convey("Then the usage counter does not drift", func() {
					So(store.UsedBytes(ctx), ShouldEqual, 33)
				})
			})

			Convey("When a refused write follows successful ones", func() {
				So(store.Put(ctx, "k", make([]byte, 32)), ShouldBeNil)
				So(store.Put(ctx, "j", make([]byte, 128)), ShouldWrap, repository.ErrQuotaExceeded)

				Convey("Then only the committed write is counted", func() {
					So(store.UsedBytes(ctx), ShouldEqual, 33)
				})
			})
		})
	}
}

func TestClosedStore(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		So(store.Close(), ShouldBeNil)

		Convey("Then every operation fails with ErrClosed", func() {
			So(store.Put(ctx, "k", nil), ShouldWrap, repository.ErrClosed)
			_, err := store.Get(ctx, "k")
			So(err, ShouldWrap, repository.ErrClosed)
			So(store.Delete(ctx, "k"), ShouldWrap, repository.ErrClosed)
			_, err = store.Keys(ctx, "")
			So(err, ShouldWrap, repository.ErrClosed)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the result classifier", t, func() {
		Convey("Then nil is OK", func() {
			So(repository.Classify(nil), ShouldEqual, repository.OK)
		})
		Convey("Then wrapped quota errors classify as QuotaExceeded", func() {
			err := errors.Join(errors.New("outer"), repository.ErrQuotaExceeded)
			So(repository.Classify(err), ShouldEqual, repository.QuotaExceeded)
		})
		Convey("Then anything else is OtherFailure", func() {
			So(repository.Classify(errors.New("disk on fire")), ShouldEqual, repository.OtherFailure)
			So(repository.Classify(repository.ErrNotFound), ShouldEqual, repository.OtherFailure)
		})
		Convey("Then the labels are stable", func() {
			So(repository.OK.String(), ShouldEqual, "ok")
			So(repository.QuotaExceeded.String(), ShouldEqual, "quota")
			So(repository.OtherFailure.String(), ShouldEqual, "failure")
		})
	})
}

func TestSessionKeyLayout(t *testing.T) {
	Convey("Given the persisted key layout", t, func() {
		So(repository.SessionKey("abc"), ShouldEqual, "session:abc")
		So(repository.HistoryKey("abc"), ShouldEqual, "history:abc")
		So(repository.QueueKey("abc"), ShouldEqual, "queue:abc")

		Convey("Then queue keys round-trip to session IDs", func() {
			id, ok := repository.SessionIDFromQueueKey(repository.QueueKey("abc"))
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, "abc")

			_, ok = repository.SessionIDFromQueueKey("session:abc")
			So(ok, ShouldBeFalse)
			_, ok = repository.SessionIDFromQueueKey("queue:")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestBadgerReopenRestoresUsage(t *testing.T) {
	Convey("Given a badger store with persisted entries", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		first, err := repository.NewBadgerStore(ctx, dir,
			repository.WithSyncWrites(false), repository.WithGCInterval(0))
		So(err, ShouldBeNil)
		So(first.Put(ctx, "session:a", []byte("payload")), ShouldBeNil)
		used := first.UsedBytes(ctx)
		So(first.Close(), ShouldBeNil)

		Convey("When reopening the same directory", func() {
			second, err := repository.NewBadgerStore(ctx, dir,
				repository.WithSyncWrites(false), repository.WithGCInterval(0))
			So(err, ShouldBeNil)
			defer func() { _ = second.Close() }()

			Convey("Then the data and the usage accounting survive", func() {
				got, err := second.Get(ctx, "session:a")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "payload")
				So(second.UsedBytes(ctx), ShouldEqual, used)
			})
		})
	})
}
