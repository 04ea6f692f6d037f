package sqlinline

const QUpsertProfile = `--sql 6b26fd3d-0be0-4d53-8204-819304a3b195
insert into profiles (id, credits, plan, is_pro, is_studio, created_at, updated_at)
values ($1::uuid, $2::int, 'free', false, false, now(), now())
on conflict (id) do update set
    updated_at = now()
returning id, credits, plan, is_pro, is_studio, created_at, updated_at;
`

const QSelectProfileByID = `--sql 10a1a9ea-2e89-42d6-b351-8b88a7466e03
select id, credits, plan, is_pro, is_studio, created_at, updated_at
from profiles
where id = $1::uuid
limit 1;
`

// Conditional single-statement decrement: concurrent requests cannot drive the
// balance below zero because the predicate and the write are one atomic update.
const QSpendCredit = `--sql a4928128-7c50-4440-9f1a-d9ccad565c1b
update profiles
set credits = credits - 1,
    updated_at = now()
where id = $1::uuid
  and credits > 0
returning credits;
`
