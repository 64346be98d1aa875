// Package secure keeps secret key material in memguard enclaves.
//
// A rotated AWS secret access key lives only in memory between the moment it
// is read from Terraform state and the moment it is handed to the secret
// store. While it waits it is held encrypted (XSalsa20Poly1305) in an enclave
// and only decrypted into a locked, guard-paged buffer for the duration of a
// single callback:
//
//	buf, err := secure.NewSecureBuffer([]byte(raw))
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	err = buf.Reveal(func(secret []byte) error {
//	    return useSecret(string(secret))
//	})
//
// Memory locking depends on RLIMIT_MEMLOCK on Linux. memguard degrades to
// ordinary allocations when mlock is refused.
package secure
