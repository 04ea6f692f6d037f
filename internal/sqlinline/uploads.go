package sqlinline

const QInsertUpload = `--sql d94f5e59-d085-4777-ac41-48be30671421
insert into uploads (public_id, user_id, delete_token, created_at)
values ($1::text, $2::uuid, $3::text, now())
on conflict (public_id) do nothing;
`

const QSelectExpiredUploads = `--sql ec14cb96-5e59-4db3-bd68-98d810928e6a
select public_id, delete_token
from uploads
where created_at < now() - interval '30 minutes'
order by created_at
limit $1::int;
`

const QDeleteUpload = `--sql 33f0b579-db28-4c0c-93c8-cf19f63b3c8f
delete from uploads
where public_id = $1::text;
`
