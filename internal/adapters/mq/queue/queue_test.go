package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	queue "github.com/phytokit/screen/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func job(id string) queue.Job {
	return queue.Job{
		JobID:   id,
		CurveID: "curve-" + id,
		Conc:    []float64{0.1, 1, 10, 100},
		Resp:    []float64{95, 70, 30, 5},
		Prefer:  "auto",
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory fit job queue", t, func() {
		Convey("When enqueuing and dequeuing", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10), queue.WithBufferSize(10))
			defer func() { So(q.Close(), ShouldBeNil) }()

			ok := q.Enqueue(context.Background(), job("1"))
			So(ok, ShouldBeTrue)
			So(q.Len(context.Background()), ShouldEqual, 1)

			Convey("The job comes back out in order", func() {
				q.Enqueue(context.Background(), job("2"))
				jobs := q.Dequeue(context.Background())

				first := <-jobs
				So(first.JobID, ShouldEqual, "1")
				second := <-jobs
				So(second.JobID, ShouldEqual, "2")
			})
		})

		Convey("When the queue is at capacity", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(2), queue.WithBufferSize(2))
			defer func() { So(q.Close(), ShouldBeNil) }()

			So(q.Enqueue(context.Background(), job("1")), ShouldBeTrue)
			So(q.Enqueue(context.Background(), job("2")), ShouldBeTrue)

			Convey("Further jobs are rejected without blocking", func() {
				So(q.Enqueue(context.Background(), job("3")), ShouldBeFalse)
				So(q.Len(context.Background()), ShouldEqual, 2)
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemoryQueue()
			So(q.Close(), ShouldBeNil)

			Convey("It reports closed and rejects new jobs", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(context.Background(), job("1")), ShouldBeFalse)
			})

			Convey("Closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})

			Convey("The dequeue channel drains and closes", func() {
				jobs := q.Dequeue(context.Background())
				select {
				case _, open := <-jobs:
					So(open, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})
		})

		Convey("When the consumer context is canceled", func() {
			q := queue.NewInMemoryQueue()
			ctx, cancel := context.WithCancel(context.Background())

			q.Enqueue(context.Background(), job("1"))
			jobs := q.Dequeue(ctx)
			first := <-jobs
			So(first.JobID, ShouldEqual, "1")
			cancel()

			Convey("The dequeue channel closes even while the queue is empty", func() {
				select {
				case _, open := <-jobs:
					So(open, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close after cancel")
				}
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When many producers enqueue concurrently", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(1000), queue.WithBufferSize(1000))
			const n = 100

			done := make(chan struct{})
			for i := 0; i < n; i++ {
				go func(i int) {
					q.Enqueue(context.Background(), job(fmt.Sprintf("c-%d", i)))
					done <- struct{}{}
				}(i)
			}
			for i := 0; i < n; i++ {
				<-done
			}

			Convey("All jobs are queued", func() {
				So(q.Len(context.Background()), ShouldEqual, n)
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
