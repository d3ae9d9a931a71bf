package domain

import "path/filepath"

const (
	// ProofDirName is the name of the internal workspace directory.
	ProofDirName = ".proof"

	// StoreDirName is the name of the build info store directory.
	StoreDirName = "store"

	// ProofFileName is the name of the project configuration file.
	ProofFileName = "proof.yaml"

	// WorkFileName is the name of the workspace configuration file.
	WorkFileName = "proof.work.yaml"

	// TestNodeSuffix is appended to a target name to form the name of its test node.
	TestNodeSuffix = "#test"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultProofPath returns the default root directory for proof metadata.
func DefaultProofPath() string {
	return ProofDirName
}

// DefaultStorePath returns the default path for the build info store.
// It joins .proof and store.
func DefaultStorePath() string {
	return filepath.Join(ProofDirName, StoreDirName)
}

// TestNodeName returns the name of the test node that runs target's artifact.
func TestNodeName(target InternedString) InternedString {
	return NewInternedString(target.String() + TestNodeSuffix)
}
