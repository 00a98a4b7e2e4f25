package htn_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/emergency-ai/decision-core/pkg/htn"
)

var _ = Describe("LoadLibrary", func() {
	It("loads a valid JSON library", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "library.json")
		content := `{
			"meta_tasks": {
				"MT-A": {"id": "MT-A", "name": "A", "priority": "high"}
			},
			"chains": {
				"C1": {"chain_id": "C1", "steps": [{"mt_id": "MT-A", "depends_on": []}]}
			},
			"scene_chain_map": {"SCENE-A": "C1"}
		}`
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		lib, err := htn.LoadLibrary(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(lib.MetaTasks).To(HaveKey("MT-A"))
		Expect(lib.SceneChainMap["SCENE-A"]).To(Equal("C1"))
	})

	It("errors when a chain references an unknown meta-task", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "library.json")
		content := `{
			"meta_tasks": {},
			"chains": {"C1": {"chain_id": "C1", "steps": [{"mt_id": "MT-MISSING"}]}},
			"scene_chain_map": {}
		}`
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		_, err := htn.LoadLibrary(path)
		Expect(err).To(HaveOccurred())
	})

	It("errors when the file does not exist", func() {
		_, err := htn.LoadLibrary("/nonexistent/library.json")
		Expect(err).To(HaveOccurred())
	})
})
