// Package trust implements CipherMesh's Trust-On-First-Use Trust Store
// (C7): a JSON file pinning each nickname to the public key first seen
// for it, with SAS-based out-of-band verification and auto-acceptance of
// authenticated in-channel key rotations.
package trust
