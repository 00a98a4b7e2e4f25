package matching_test

import (
	"context"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jmoiron/sqlx"

	"github.com/emergency-ai/decision-core/pkg/matching"
)

var _ = Describe("PGRegistry", func() {
	It("scans standby teams from the rescue_teams table", func() {
		db, mock, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()

		rows := sqlmock.NewRows([]string{"id", "name", "resource_type", "capabilities", "latitude", "longitude", "personnel", "capability_level", "status"}).
			AddRow("t1", "Alpha", "search_and_rescue", "{LIFE_DETECTION,STRUCTURAL_RESCUE}", 31.68, 103.85, 20, 5, "standby")

		mock.ExpectQuery("SELECT .* FROM rescue_teams").WillReturnRows(rows)

		sqlxDB := sqlx.NewDb(db, "postgres")
		registry := matching.NewPGRegistry(sqlxDB)

		teams, err := registry.StandbyTeams(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(teams).To(HaveLen(1))
		Expect(teams[0].ID).To(Equal("t1"))
		Expect(teams[0].Capabilities).To(ConsistOf("LIFE_DETECTION", "STRUCTURAL_RESCUE"))

		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("wraps a query error", func() {
		db, mock, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		defer db.Close()

		mock.ExpectQuery("SELECT .* FROM rescue_teams").WillReturnError(sqlmock.ErrCancelled)

		sqlxDB := sqlx.NewDb(db, "postgres")
		registry := matching.NewPGRegistry(sqlxDB)

		_, err = registry.StandbyTeams(context.Background())
		Expect(err).To(HaveOccurred())
	})
})
