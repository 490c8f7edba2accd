package app

import (
	auditService "github.com/usphq/usp/internal/audit/service"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	sealService "github.com/usphq/usp/internal/seal/service"
)

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KMSService returns the external KMS client used for auto-unseal.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// Guard returns the key custodian. The guard is the single runtime slot for
// the unsealed key hierarchy; every engine derives its subkeys through it.
func (c *Container) Guard() *sealService.Guard {
	c.guardInit.Do(func() {
		c.guard = sealService.NewGuard()
	})
	return c.guard
}

// ChainSigner returns the audit chain HMAC signer.
func (c *Container) ChainSigner() auditService.ChainSigner {
	c.chainSignerInit.Do(func() {
		c.chainSigner = auditService.NewChainSigner()
	})
	return c.chainSigner
}
