package account_test

import (
	"context"
	"errors"

	"github.com/assujiar/ugc-business-command-portal-sub003/account"
	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/assujiar/ugc-business-command-portal-sub003/testinfra"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("accounts", func() {
	var (
		testDatabase *testinfra.TestDatabase
		admin        = authority.Actor{ID: 1, Name: "root", Role: authority.RoleAdmin}
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartTestDatabase("bizflow", &account.Account{})
		Expect(account.Provision(context.TODO(), []account.Account{
			{ID: 1, Name: "root", Role: authority.RoleAdmin},
			{ID: 2, Name: "dina", Role: authority.RoleDesigner},
		})).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopTestDatabase(testDatabase)
	})

	Describe("Provision", func() {
		It("should keep the role of existing accounts", func() {
			_, err := account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: authority.RoleMarketing}, admin)
			Expect(err).To(BeNil())

			Expect(account.Provision(context.TODO(), []account.Account{
				{ID: 2, Name: "dina", Role: authority.RoleDesigner},
				{ID: 3, Name: "sam", Role: authority.RoleSales},
			})).To(BeNil())

			a, err := account.Detail(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(a.Role).To(Equal(authority.RoleMarketing))

			a, err = account.Detail(context.TODO(), 3)
			Expect(err).To(BeNil())
			Expect(a.Role).To(Equal(authority.RoleSales))
			Expect(a.CreateTime.IsZero()).To(BeFalse())
		})

		It("should store roles in normalized form", func() {
			Expect(account.Provision(context.TODO(), []account.Account{{ID: 4, Name: "kai", Role: " Support"}})).To(BeNil())
			a, err := account.Detail(context.TODO(), 4)
			Expect(err).To(BeNil())
			Expect(a.Role).To(Equal(authority.RoleSupport))
		})

		It("should reject unknown roles", func() {
			err := account.Provision(context.TODO(), []account.Account{{ID: 9, Name: "x", Role: "intern"}})
			Expect(err).To(MatchError("account 9: unknown role 'intern'"))
		})
	})

	Describe("ResolveActor", func() {
		It("should read the current role on every call", func() {
			actor, err := account.ResolveActor(context.TODO(), session.Identity{ID: 2, Name: "dina"})
			Expect(err).To(BeNil())
			Expect(actor).To(Equal(authority.Actor{ID: 2, Name: "dina", Role: authority.RoleDesigner}))

			_, err = account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: authority.RoleManager}, admin)
			Expect(err).To(BeNil())

			actor, err = account.ResolveActor(context.TODO(), session.Identity{ID: 2, Name: "dina"})
			Expect(err).To(BeNil())
			Expect(actor.Role).To(Equal(authority.RoleManager))
		})

		It("should not authenticate identities without account", func() {
			_, err := account.ResolveActor(context.TODO(), session.Identity{ID: 42, Name: "ghost"})
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
		})
	})

	Describe("UpdateRole", func() {
		It("should require account management", func() {
			designer := authority.Actor{ID: 2, Name: "dina", Role: authority.RoleDesigner}
			_, err := account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: authority.RoleAdmin}, designer)
			Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
		})

		It("should reject unknown roles and accounts", func() {
			_, err := account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: "intern"}, admin)
			Expect(err).To(MatchError("unknown role 'intern'"))

			_, err = account.UpdateRole(context.TODO(), 42, &account.RoleUpdating{Role: authority.RoleSales}, admin)
			Expect(err).To(Equal(bizerror.ErrNotFound))
		})

		It("should accept role names in any case", func() {
			a, err := account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: "Manager"}, admin)
			Expect(err).To(BeNil())
			Expect(a.Role).To(Equal(authority.RoleManager))

			actor, err := account.ResolveActor(context.TODO(), session.Identity{ID: 2, Name: "dina"})
			Expect(err).To(BeNil())
			Expect(actor.Role).To(Equal(authority.RoleManager))
		})

		It("should return the updated account", func() {
			a, err := account.UpdateRole(context.TODO(), 2, &account.RoleUpdating{Role: authority.RoleSupport}, admin)
			Expect(err).To(BeNil())
			Expect(a.ID).To(BeEquivalentTo(2))
			Expect(a.Name).To(Equal("dina"))
			Expect(a.Role).To(Equal(authority.RoleSupport))
		})
	})
})
