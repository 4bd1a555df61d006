package fuellog_test

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/fuel-tracker/internal/fuellog"
)

var _ = Describe("BoltDB", func() {
	var (
		ctx context.Context
		db  *fuellog.BoltDB
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = fuellog.NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"), "")
		Expect(err).NotTo(HaveOccurred())
		fuellog.SetClock(db, func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) })
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRecord := func(date, station string, total float64) *fuellog.Record {
		return &fuellog.Record{
			CarID:         "car-1",
			Date:          date,
			Liters:        ptr(40.0),
			PricePerLiter: ptr(1.6),
			PriceTotal:    ptr(total),
			StationName:   station,
			Currency:      "EUR",
			ReceiptFileID: "file-1",
			AIParsed:      true,
		}
	}

	Describe("Insert", func() {
		var (
			record *fuellog.Record
			saved  *fuellog.Record
			err    error
		)

		BeforeEach(func() {
			record = newRecord("2024-01-15", "Aral", 64.00)
		})

		JustBeforeEach(func() {
			saved, err = db.Insert(ctx, "rec-1", record, []string{fuellog.Read(fuellog.RoleUsers), fuellog.Update(fuellog.RoleUsers)})
		})

		When("inserting succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should assign the id and creation time", func() {
				Expect(saved.ID).To(Equal("rec-1"))
				Expect(saved.CreatedAt).To(Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
			})

			It("should store the permissions", func() {
				Expect(saved.Permissions).To(ConsistOf(`read("users")`, `update("users")`))
			})

			It("should not modify the caller's record", func() {
				Expect(record.ID).To(BeEmpty())
			})

			It("should be retrievable by id", func() {
				got, getErr := db.Get(ctx, "rec-1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(got.StationName).To(Equal("Aral"))
				Expect(*got.PriceTotal).To(Equal(64.00))
			})
		})

		When("the same fuel-up already exists", func() {
			BeforeEach(func() {
				_, insertErr := db.Insert(ctx, "rec-0", newRecord("2024-01-15", "Aral", 64.00), nil)
				Expect(insertErr).NotTo(HaveOccurred())
			})

			It("returns ErrDuplicate", func() {
				Expect(errors.Is(err, fuellog.ErrDuplicate)).To(BeTrue())
			})

			It("should not store a second record", func() {
				result, queryErr := db.Query(ctx)
				Expect(queryErr).NotTo(HaveOccurred())
				Expect(result.Total).To(Equal(1))
			})
		})

		When("only the total differs", func() {
			BeforeEach(func() {
				_, insertErr := db.Insert(ctx, "rec-0", newRecord("2024-01-15", "Aral", 63.99), nil)
				Expect(insertErr).NotTo(HaveOccurred())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("the id is already taken", func() {
			BeforeEach(func() {
				_, insertErr := db.Insert(ctx, "rec-1", newRecord("2023-05-01", "Shell", 50), nil)
				Expect(insertErr).NotTo(HaveOccurred())
			})

			It("returns the error", func() {
				Expect(err).To(MatchError("fuel log already exists: rec-1"))
			})
		})

		When("the context is cancelled", func() {
			BeforeEach(func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				ctx = cctx
			})

			It("returns the context error", func() {
				Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			})
		})
	})

	Describe("Get", func() {
		When("the record does not exist", func() {
			It("returns ErrNotFound", func() {
				_, err := db.Get(ctx, "missing")
				Expect(errors.Is(err, fuellog.ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			_, err := db.Insert(ctx, "a", newRecord("2024-01-15", "Aral", 64.00), nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Insert(ctx, "b", newRecord("2024-01-15", "Shell", 64.00), nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Insert(ctx, "c", newRecord("2024-02-01", "Aral", 70.10), nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches on the exact date, station and total", func() {
			result, err := db.Query(ctx,
				fuellog.Equal("date", "2024-01-15"),
				fuellog.Equal("stationName", "Aral"),
				fuellog.Equal("priceTotal", ptr(64.00)),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(1))
			Expect(result.Documents[0].ID).To(Equal("a"))
		})

		It("returns nothing for a near miss", func() {
			result, err := db.Query(ctx,
				fuellog.Equal("date", "2024-01-15"),
				fuellog.Equal("stationName", "Aral"),
				fuellog.Equal("priceTotal", 64.01),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(BeZero())
			Expect(result.Documents).To(BeEmpty())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for id, date := range map[string]string{
				"old":    "2023-12-31T23:59:59.000Z",
				"jan":    "2024-01-15",
				"dec":    "2024-12-31",
				"newest": "2025-01-01",
			} {
				_, err := db.Insert(ctx, id, newRecord(date, "Aral", 50), nil)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("orders by date descending when asked", func() {
			result, err := db.List(ctx, fuellog.ListOptions{OrderDesc: true})
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, 0, len(result.Documents))
			for _, d := range result.Documents {
				ids = append(ids, d.ID)
			}
			Expect(ids).To(Equal([]string{"newest", "dec", "jan", "old"}))
		})

		It("selects a calendar year", func() {
			result, err := db.List(ctx, fuellog.ListOptions{Filters: fuellog.InYear(2024)})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(2))
			Expect(result.Documents[0].ID).To(Equal("jan"))
			Expect(result.Documents[1].ID).To(Equal("dec"))
		})

		It("counts all matches but returns at most Limit", func() {
			result, err := db.List(ctx, fuellog.ListOptions{Limit: 1, OrderDesc: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(4))
			Expect(result.Documents).To(HaveLen(1))
		})
	})
})
