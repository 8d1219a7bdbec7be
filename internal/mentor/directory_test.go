package mentor_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/mentor-queue/internal/mentor"
)

var _ = Describe("Directory", func() {
	var dir *mentor.Directory

	BeforeEach(func() {
		dir = mentor.Default()
	})

	DescribeTable("NormalizeLogin",
		func(in, want string) {
			Expect(dir.NormalizeLogin(in)).To(Equal(want))
		},
		Entry("primary alias", "muzeira", "muzeira@mentor.com"),
		Entry("second alias of primary", "Murilo", "muzeira@mentor.com"),
		Entry("alias as substring", "tocha123", "kayo@mentor.com"),
		Entry("second mentor", "kayo", "kayo@mentor.com"),
		Entry("unknown name", "ana", "ana@mentor.com"),
		Entry("qualified address", "someone@example.com", "someone@example.com"),
	)

	It("picks profiles by exact email and defaults to the primary", func() {
		Expect(dir.ProfileForEmail("kayo@mentor.com").ID).To(Equal("kayo"))
		Expect(dir.ProfileForEmail("stranger@example.com").ID).To(Equal("muzeira"))
		Expect(dir.ProfileForEmail("").CanClearHistory).To(BeTrue())
	})

	It("checks mentor membership", func() {
		Expect(dir.IsMentorEmail("KAYO@mentor.com")).To(BeTrue())
		Expect(dir.IsMentorEmail("new@mentor.com")).To(BeTrue())
		Expect(dir.IsMentorEmail("student@example.com")).To(BeFalse())
		Expect(dir.IsMentorEmail("")).To(BeFalse())
	})

	It("lists mentor ids in order", func() {
		Expect(dir.IDs()).To(Equal([]string{"muzeira", "kayo"}))
	})

	Describe("Load", func() {
		It("returns the default directory for an empty path", func() {
			d, err := mentor.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Primary).To(Equal("muzeira"))
		})

		It("reads a yaml file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "mentors.yaml")
			Expect(os.WriteFile(path, []byte(`
domain: academy.dev
mentors:
  - id: ana
    name: Ana
    email: ana@academy.dev
    title: Lead
    can_clear_history: true
    aliases: [ana]
  - id: bob
    name: Bob
    email: bob@academy.dev
`), 0o600)).To(Succeed())

			d, err := mentor.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Primary).To(Equal("ana"))
			Expect(d.NormalizeLogin("ana")).To(Equal("ana@academy.dev"))
			Expect(d.NormalizeLogin("carl")).To(Equal("carl@academy.dev"))
			p, ok := d.ByID("bob")
			Expect(ok).To(BeTrue())
			Expect(p.CanClearHistory).To(BeFalse())
		})

		It("rejects duplicate ids", func() {
			_, err := mentor.Parse([]byte("domain: x.dev\nmentors:\n  - {id: a, email: a@x.dev}\n  - {id: a, email: b@x.dev}\n"))
			Expect(err).To(MatchError(ContainSubstring("duplicate")))
		})
	})
})
