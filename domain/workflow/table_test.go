package workflow_test

import (
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// admissible lists every allowed from>to pair, anything else must be rejected.
var admissible = map[domain.EntityType][]string{
	domain.EntityTypeDesignRequest: {
		"draft>submitted", "draft>cancelled",
		"submitted>accepted", "submitted>cancelled",
		"accepted>in_progress", "accepted>cancelled",
		"in_progress>delivered",
		"delivered>approved", "delivered>revision_requested",
		"revision_requested>in_progress",
	},
	domain.EntityTypeContentPlan: {
		"draft>planned", "draft>cancelled",
		"planned>draft", "planned>in_production", "planned>cancelled",
		"in_production>in_review",
		"in_review>scheduled", "in_review>revision_requested",
		"revision_requested>in_production",
		"scheduled>published", "scheduled>cancelled",
	},
	domain.EntityTypeQuotation: {
		"draft>pending_approval", "draft>cancelled",
		"pending_approval>approved", "pending_approval>rejected", "pending_approval>draft",
		"rejected>draft", "rejected>cancelled",
		"approved>sent", "approved>cancelled",
		"sent>accepted", "sent>declined",
	},
	domain.EntityTypeTicket: {
		"open>in_progress", "open>cancelled",
		"in_progress>waiting_customer", "in_progress>resolved",
		"waiting_customer>in_progress", "waiting_customer>resolved",
		"resolved>closed", "resolved>in_progress",
	},
	domain.EntityTypeLead: {
		"new>contacted", "new>lost",
		"contacted>qualified", "contacted>lost",
		"qualified>contacted", "qualified>proposal_sent", "qualified>lost",
		"proposal_sent>won", "proposal_sent>lost",
	},
}

var _ = Describe("Transition tables", func() {
	registry := workflow.ActiveRegistry

	It("should define a table for every entity type", func() {
		var types []domain.EntityType
		for _, t := range registry.Tables() {
			types = append(types, t.EntityType)
		}
		Expect(types).To(Equal([]domain.EntityType{domain.EntityTypeDesignRequest, domain.EntityTypeContentPlan,
			domain.EntityTypeQuotation, domain.EntityTypeTicket, domain.EntityTypeLead}))
	})

	Describe("Allowed", func() {
		It("should match the admissible pairs exactly for every entity type", func() {
			for entityType, pairs := range admissible {
				table, found := registry.Table(entityType)
				Expect(found).To(BeTrue())

				expected := map[string]bool{}
				for _, p := range pairs {
					expected[p] = true
				}
				for _, from := range table.States {
					for _, to := range table.States {
						pair := from.Name + ">" + to.Name
						Expect(table.Allowed(from.Name, to.Name)).To(Equal(expected[pair]), string(entityType)+" "+pair)
					}
				}
			}
		})

		It("should reject unknown states", func() {
			table, _ := registry.Table(domain.EntityTypeDesignRequest)
			Expect(table.Allowed("draft", "nowhere")).To(BeFalse())
			Expect(table.Allowed("nowhere", "draft")).To(BeFalse())
		})
	})

	Describe("Targets", func() {
		It("should be empty for every terminal state", func() {
			for _, table := range registry.Tables() {
				Expect(table.TerminalStates()).ToNot(BeEmpty())
				for _, terminal := range table.TerminalStates() {
					Expect(table.Targets(terminal)).To(BeEmpty(), string(table.EntityType)+" "+terminal)
				}
			}
		})

		It("should list sorted successors", func() {
			table, _ := registry.Table(domain.EntityTypeDesignRequest)
			Expect(table.Targets("delivered")).To(Equal([]string{"approved", "revision_requested"}))
			Expect(table.Targets("draft")).To(Equal([]string{"cancelled", "submitted"}))
		})
	})

	Describe("Rules", func() {
		It("should require a comment to request a revision", func() {
			table, _ := registry.Table(domain.EntityTypeDesignRequest)
			rule, found := table.Rule("delivered", "revision_requested")
			Expect(found).To(BeTrue())
			Expect(rule.RequiresComment).To(BeTrue())
			Expect(rule.Actor).To(Equal(workflow.ActorRequester))
		})

		It("should know the states entered by producer moves", func() {
			table, _ := registry.Table(domain.EntityTypeDesignRequest)
			Expect(table.Produced("delivered")).To(BeTrue())
			Expect(table.Produced("in_progress")).To(BeTrue())
			Expect(table.Produced("submitted")).To(BeFalse())
			Expect(table.Produced("approved")).To(BeFalse())
		})

		It("should default the actor constraint to none", func() {
			table, _ := registry.Table(domain.EntityTypeLead)
			rule, _ := table.Rule("new", "contacted")
			Expect(rule.Actor).To(Equal(workflow.ActorNone))
		})

		// Backward moves are configured as documented, their business intent has not been confirmed.
		It("should keep the configured backward transitions", func() {
			backward := map[domain.EntityType][]string{}
			for _, table := range registry.Tables() {
				for _, r := range table.Transitions {
					if r.Backward {
						backward[table.EntityType] = append(backward[table.EntityType], r.From+">"+r.To)
					}
				}
			}
			Expect(backward).To(Equal(map[domain.EntityType][]string{
				domain.EntityTypeContentPlan: {"planned>draft"},
				domain.EntityTypeQuotation:   {"pending_approval>draft", "rejected>draft"},
				domain.EntityTypeTicket:      {"resolved>in_progress"},
				domain.EntityTypeLead:        {"qualified>contacted"},
			}))

			table, _ := registry.Table(domain.EntityTypeContentPlan)
			rule, _ := table.Rule("planned", "draft")
			Expect(rule.RequiresComment).To(BeFalse())
		})
	})

	Describe("Graph", func() {
		It("should render states and transitions in DOT format", func() {
			table, _ := registry.Table(domain.EntityTypeTicket)
			graph := table.Graph()
			Expect(graph).To(ContainSubstring("digraph"))
			Expect(graph).To(ContainSubstring("waiting_customer"))
		})
	})

	Describe("LoadRegistry", func() {
		It("should reject outgoing transitions of a terminal state", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:access
  states: [{name: new}, {name: won, terminal: true}]
  transitions: [{from: new, to: won}, {from: won, to: new}]
`))
			Expect(err).To(MatchError("lead: terminal state 'won' has outgoing transition to 'new'"))
		})

		It("should reject undeclared states", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:access
  states: [{name: new}]
  transitions: [{from: new, to: won}]
`))
			Expect(err).To(MatchError("lead: transition references undeclared state 'won'"))
		})

		It("should reject self transitions", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:access
  states: [{name: new}]
  transitions: [{from: new, to: new}]
`))
			Expect(err).To(MatchError("lead: self transition on 'new' is not allowed"))
		})

		It("should reject a terminal initial state", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: won
  accessCapability: lead:access
  states: [{name: won, terminal: true}]
`))
			Expect(err).To(MatchError("lead: initial state 'won' is terminal"))
		})

		It("should reject unknown capabilities and stamps", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:everything
  states: [{name: new}]
`))
			Expect(err).To(MatchError("lead: unknown capability 'lead:everything'"))

			_, err = workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:access
  states: [{name: new, stamp: born_at}]
`))
			Expect(err).To(MatchError("lead: state 'new' declares unknown stamp 'born_at'"))
		})

		It("should reject unknown fields and empty documents", func() {
			_, err := workflow.LoadRegistry([]byte(`
- entityType: lead
  initialState: new
  accessCapability: lead:access
  color: red
  states: [{name: new}]
`))
			Expect(err).To(HaveOccurred())

			_, err = workflow.LoadRegistry([]byte(`[]`))
			Expect(err).To(MatchError("no transition table defined"))
		})
	})
})
