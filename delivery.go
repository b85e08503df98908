package notifier

import (
	"context"
	"time"
)

// FailureCause is the fixed cause string raised by the delivery workflow's
// fail terminal. It is observable to operators but does not trigger a retry.
const FailureCause = "Email Not Sent"

const validationDelay = 5 * time.Second

// Deps are the collaborators of the delivery workflow.
type Deps struct {
	Store     RecordStore
	Templates TemplateStore
	Mailer    Mailer
}

// NewDeliveryWorkflow composes the leaf components into the fixed delivery
// graph:
//
//	validate -> wait 5s -> [valid]   find_template
//	                       [invalid] mark_validation_failed -> update_status -> fail
//	find_template       -> [found]   send_email -> succeed
//	                       [missing] seed_templates -> find_template_again
//	find_template_again -> [found]   send_email
//	                       [missing] mark_no_template -> update_status -> fail
//
// The post-validation wait is a deliberate pacing delay. Template resolution
// is retried exactly once, after seeding; there is no loop.
func NewDeliveryWorkflow(d Deps, opts ...EngineOption) (*Engine, error) {
	resolver := NewTemplateResolver(d.Templates)
	seeder := NewTemplateSeeder(d.Templates)
	recorder := NewStatusRecorder(d.Store)
	dispatcher := NewDispatcher(d.Mailer, recorder)

	findTemplate := func(ctx context.Context, ex *Execution) error {
		body, found, err := resolver.Find(ctx, ex.Record.Type)
		if err != nil {
			return err
		}

		ex.Template = body
		ex.TemplateFound = found
		return nil
	}

	templateFound := func(ex *Execution) bool { return ex.TemplateFound }

	b := NewEngineBuilder("email delivery")

	b.AddStep(StateValidate, func(ctx context.Context, ex *Execution) error {
		ex.IsValid = Validate(ex.Record)
		return nil
	}, WithPostDelay(validationDelay))
	b.AddTransition(StateValidate, StateFindTemplate, func(ex *Execution) bool { return ex.IsValid })
	b.AddTransition(StateValidate, StateMarkValidationFailed, nil)

	b.AddStep(StateFindTemplate, findTemplate)
	b.AddTransition(StateFindTemplate, StateSendEmail, templateFound)
	b.AddTransition(StateFindTemplate, StateSeedTemplates, nil)

	b.AddStep(StateSeedTemplates, func(ctx context.Context, ex *Execution) error {
		return seeder.SeedAll(ctx)
	})
	b.AddTransition(StateSeedTemplates, StateFindTemplateAgain, nil)

	b.AddStep(StateFindTemplateAgain, findTemplate)
	b.AddTransition(StateFindTemplateAgain, StateSendEmail, templateFound)
	b.AddTransition(StateFindTemplateAgain, StateMarkNoTemplate, nil)

	b.AddStep(StateMarkValidationFailed, func(ctx context.Context, ex *Execution) error {
		ex.NeedToUpdate = &StatusUpdate{Status: StatusValidationError}
		return nil
	})
	b.AddTransition(StateMarkValidationFailed, StateUpdateStatus, nil)

	b.AddStep(StateMarkNoTemplate, func(ctx context.Context, ex *Execution) error {
		ex.NeedToUpdate = &StatusUpdate{Status: StatusReadError}
		return nil
	})
	b.AddTransition(StateMarkNoTemplate, StateUpdateStatus, nil)

	b.AddStep(StateUpdateStatus, func(ctx context.Context, ex *Execution) error {
		if ex.NeedToUpdate == nil {
			return nil
		}

		r, err := recorder.Update(ctx, ex.Record, ex.NeedToUpdate.Status)
		if err != nil {
			return err
		}

		ex.Record = r
		return nil
	})
	b.AddTransition(StateUpdateStatus, StateFail, nil)

	b.AddStep(StateSendEmail, func(ctx context.Context, ex *Execution) error {
		body := Render(ex.Template, ex.Record)

		_, err := dispatcher.Send(ctx, ex.Record, body)
		if err != nil {
			return err
		}

		ex.Record.Status = StatusSendSuccess
		return nil
	})
	b.AddTransition(StateSendEmail, StateSucceed, nil)

	return b.Build(append([]EngineOption{WithFailureCause(FailureCause)}, opts...)...)
}
