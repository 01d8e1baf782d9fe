package common_test

import (
	"openpka/common"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestDayOf(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should strip time of day in the zone of the value", func(t *testing.T) {
		loc := time.FixedZone("UTC+7", 7*3600)
		Expect(common.DayOf(time.Date(2024, 3, 1, 5, 30, 0, 0, loc))).To(Equal(common.Date(2024, 3, 1)))
		Expect(common.DayOf(time.Date(2024, 7, 1, 0, 0, 0, 0, loc))).To(Equal(common.Date(2024, 7, 1)))
		Expect(common.DayOf(time.Date(2024, 6, 30, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)))).To(Equal(common.Date(2024, 6, 30)))
		Expect(common.DayOf(time.Date(2024, 3, 1, 23, 59, 59, 999, time.UTC))).To(Equal(common.Date(2024, 3, 1)))
	})

	t.Run("should keep zero and nil values", func(t *testing.T) {
		Expect(common.DayOf(time.Time{}).IsZero()).To(BeTrue())
		Expect(common.DayPtrOf(nil)).To(BeNil())
		d := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
		Expect(*common.DayPtrOf(&d)).To(Equal(common.Date(2024, 7, 1)))
	})

	t.Run("today should follow NowFunc", func(t *testing.T) {
		defer func() { common.NowFunc = time.Now }()
		common.NowFunc = func() time.Time { return time.Date(2024, 7, 2, 13, 0, 0, 0, time.UTC) }
		Expect(common.Today()).To(Equal(common.Date(2024, 7, 2)))
	})

	t.Run("today should follow the configured location", func(t *testing.T) {
		defer func() {
			common.NowFunc = time.Now
			common.Location = time.UTC
		}()
		common.NowFunc = func() time.Time { return time.Date(2024, 6, 30, 20, 0, 0, 0, time.UTC) }
		Expect(common.Today()).To(Equal(common.Date(2024, 6, 30)))

		Expect(common.SetLocation("Asia/Bangkok")).To(BeNil())
		Expect(common.Today()).To(Equal(common.Date(2024, 7, 1)))

		Expect(common.SetLocation("Nowhere/Unknown")).ToNot(BeNil())
		Expect(common.Location.String()).To(Equal("Asia/Bangkok"))

		Expect(common.SetLocation("")).To(BeNil())
		Expect(common.Location).To(Equal(time.UTC))
	})
}
