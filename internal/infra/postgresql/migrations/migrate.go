package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createLeadsTable(),
		createTemplatesAndContactLogsTables(),
		createSequenceTables(),
		createBulkJobTables(),
	})

	return m.Migrate()
}

func createLeadsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_leads",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.LeadModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_leads_status_score ON leads (status, score DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_leads_last_contacted ON leads (last_contacted_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.LeadModel{})
		},
	}
}

func createTemplatesAndContactLogsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_templates_contact_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TemplateModel{}, &repository.ContactLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_templates_name_channel ON message_templates (name, channel) WHERE is_active`,
				`CREATE INDEX IF NOT EXISTS idx_contact_logs_lead_sent ON contact_logs (lead_id, sent_at DESC)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ContactLogModel{}, &repository.TemplateModel{})
		},
	}
}

func createSequenceTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_sequences",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(
				&repository.SequenceModel{},
				&repository.SequenceStepModel{},
				&repository.EnrollmentModel{},
			); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_steps_sequence_index ON sequence_steps (sequence_id, step_index)`,
				// At most one ACTIVE enrollment per lead per sequence.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_active_lead_sequence ON sequence_enrollments (lead_id, sequence_id) WHERE status = 'ACTIVE'`,
				`CREATE INDEX IF NOT EXISTS idx_enrollments_due ON sequence_enrollments (next_due_at) WHERE status = 'ACTIVE'`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&repository.EnrollmentModel{},
				&repository.SequenceStepModel{},
				&repository.SequenceModel{},
			)
		},
	}
}

func createBulkJobTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_bulk_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BulkJobModel{}, &repository.BulkJobItemModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_bulk_jobs_status_created ON bulk_jobs (status, created_at)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_items_job_position ON bulk_job_items (job_id, position)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BulkJobItemModel{}, &repository.BulkJobModel{})
		},
	}
}
